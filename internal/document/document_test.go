package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"procscribe/internal/process"
	"procscribe/internal/services"
	"procscribe/internal/testsupport"
)

var fixedClock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestBuildTableShapes(t *testing.T) {
	desc := testsupport.SampleDescription()
	doc := Build(desc)
	tables := doc.Tables()

	// applications + one per group + exceptions
	if want := 1 + len(desc.Steps) + 1; len(tables) != want {
		t.Fatalf("tables = %d, want %d", len(tables), want)
	}
	if got, want := len(tables[0].Rows), 1+len(desc.Applications); got != want {
		t.Fatalf("application rows = %d, want %d", got, want)
	}
	for i, group := range desc.Steps {
		table := tables[1+i]
		if got, want := len(table.Rows), 1+len(group.SubSteps); got != want {
			t.Fatalf("group %s rows = %d, want %d", group.Numbering, got, want)
		}
		header := table.Rows[0].Cells
		if len(header) != 1 || header[0].Span != 3 || !header[0].Bold || header[0].Fill != GroupHeaderFill {
			t.Fatalf("unexpected group header %+v", header)
		}
		if header[0].Text != group.Numbering+" "+group.GroupName {
			t.Fatalf("header text = %q", header[0].Text)
		}
		for j, sub := range group.SubSteps {
			cells := table.Rows[1+j].Cells
			if cells[0].Text != sub.Numbering || cells[1].Text != sub.Step || cells[2].Text != sub.Timestamp {
				t.Fatalf("row %d = %+v, want %+v", j, cells, sub)
			}
		}
		if len(table.Widths) != 3 || table.Widths[0] != 720 || table.Widths[1] != 6480 || table.Widths[2] != 2160 {
			t.Fatalf("widths = %v", table.Widths)
		}
	}
}

func TestBuildBordersEveryCell(t *testing.T) {
	doc := Build(testsupport.SampleDescription())
	for ti, table := range doc.Tables() {
		for ri, row := range table.Rows {
			for ci, cell := range row.Cells {
				if cell.Border == nil || cell.Border.Style != "single" || cell.Border.Size != 4 {
					t.Fatalf("table %d row %d cell %d border = %+v", ti, ri, ci, cell.Border)
				}
			}
		}
	}
}

func TestBuildHeadingsAndOptionalSections(t *testing.T) {
	desc := testsupport.SampleDescription()
	doc := Build(desc)
	first, ok := doc.Blocks[0].(Heading)
	if !ok || first.Level != 1 || first.Text != "Process Name: Invoice Approval" {
		t.Fatalf("first block = %#v", doc.Blocks[0])
	}
	if p, ok := doc.Blocks[1].(Paragraph); !ok || p.Text != desc.ShortDescription {
		t.Fatalf("second block = %#v", doc.Blocks[1])
	}
	if !hasHeading(doc, "Exceptions") || !hasHeading(doc, "Clarifications") {
		t.Fatal("expected exceptions and clarifications sections")
	}
	if !hasParagraph(doc, "1. Who approves invoices above the threshold?") {
		t.Fatal("expected numbered clarification")
	}

	desc.Exceptions = nil
	desc.Clarifications = nil
	bare := Build(desc)
	if hasHeading(bare, "Exceptions") || hasHeading(bare, "Clarifications") {
		t.Fatal("empty sections should be omitted")
	}
}

func TestBuildDeterministic(t *testing.T) {
	desc := testsupport.SampleDescription()
	a := toXML(t, Build(desc))
	b := toXML(t, Build(desc))
	if !bytes.Equal(a, b) {
		t.Fatal("identical input produced different document markup")
	}
}

func TestRenderInvoiceApproval(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(dir, WithClock(fixedClock))

	path, err := renderer.Render(context.Background(), testsupport.SampleDescription())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if filepath.Base(path) != "Invoice_Approval.docx" {
		t.Fatalf("path = %s", path)
	}

	parts := readParts(t, path)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/styles.xml",
		"word/_rels/document.xml.rels",
		"docProps/core.xml",
		"docProps/app.xml",
	} {
		if _, ok := parts[name]; !ok {
			t.Fatalf("missing part %s", name)
		}
	}

	tables := parseTables(t, parts["word/document.xml"])
	apps := tables[0]
	if len(apps) != 3 {
		t.Fatalf("application table rows = %d, want 3", len(apps))
	}
	if got := strings.Join(apps[0], "|"); got != "Application Name|Type|URL" {
		t.Fatalf("header = %q", got)
	}
	if apps[1][0] != "SAP GUI" || apps[1][2] != "" {
		t.Fatalf("first application row = %q", apps[1])
	}
	if apps[2][2] != "https://outlook.office.com" {
		t.Fatalf("second application row = %q", apps[2])
	}
	steps := tables[2]
	if steps[1][1] != `Reply "Approved" to the requester` {
		t.Fatalf("step text = %q", steps[1][1])
	}

	core := string(parts["docProps/core.xml"])
	if !strings.Contains(core, "<dc:title>Invoice Approval</dc:title>") ||
		!strings.Contains(core, "2024-03-01T12:00:00Z") {
		t.Fatalf("unexpected core properties: %s", core)
	}
	if !strings.Contains(string(parts["word/styles.xml"]), "Calibri") {
		t.Fatal("styles should default to Calibri")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the document in output dir, found %d entries", len(entries))
	}
}

func TestRenderIdempotent(t *testing.T) {
	dir := t.TempDir()
	desc := testsupport.SampleDescription()

	first, err := NewRenderer(dir, WithClock(fixedClock)).Render(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := os.ReadFile(first)

	later := func() time.Time { return fixedClock().Add(time.Hour) }
	second, err := NewRenderer(dir, WithClock(later)).Render(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("paths differ: %s vs %s", first, second)
	}
	b, _ := os.ReadFile(second)

	partsA := readPartsBytes(t, a)
	partsB := readPartsBytes(t, b)
	for name, data := range partsA {
		if name == "docProps/core.xml" {
			continue
		}
		if !bytes.Equal(data, partsB[name]) {
			t.Fatalf("part %s differs between renders", name)
		}
	}
}

func TestRenderEmptyNameFails(t *testing.T) {
	desc := testsupport.SampleDescription()
	desc.ProcessName = " ._ "
	_, err := NewRenderer(t.TempDir()).Render(context.Background(), desc)
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if !errors.Is(err, services.ErrRender) || !errors.Is(err, process.ErrEmptyStem) {
		t.Fatalf("expected ErrRender and ErrEmptyStem, got %v", err)
	}
}

func TestRenderMissingDirFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := NewRenderer(dir).Render(context.Background(), testsupport.SampleDescription())
	var renderErr *RenderError
	if !errors.As(err, &renderErr) || renderErr.Path == "" {
		t.Fatalf("expected RenderError with path, got %v", err)
	}
}

func hasHeading(doc Document, text string) bool {
	for _, b := range doc.Blocks {
		if h, ok := b.(Heading); ok && h.Text == text {
			return true
		}
	}
	return false
}

func hasParagraph(doc Document, text string) bool {
	for _, b := range doc.Blocks {
		if p, ok := b.(Paragraph); ok && p.Text == text {
			return true
		}
	}
	return false
}

func toXML(t *testing.T, doc Document) []byte {
	t.Helper()
	data, err := xml.Marshal(toWordML(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func readParts(t *testing.T, path string) map[string][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return readPartsBytes(t, data)
}

func readPartsBytes(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		parts[f.Name] = body
	}
	return parts
}

// parseTables returns the cell text of every table as rows of cells.
func parseTables(t *testing.T, data []byte) [][][]string {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		tables [][][]string
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode document.xml: %v", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				depth++
				tables = append(tables, nil)
			case "tr":
				cur := len(tables) - 1
				tables[cur] = append(tables[cur], nil)
			case "tc":
				cur := len(tables) - 1
				row := len(tables[cur]) - 1
				tables[cur][row] = append(tables[cur][row], "")
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "tbl":
				depth--
			}
		case xml.CharData:
			if inText && depth > 0 {
				cur := len(tables) - 1
				row := len(tables[cur]) - 1
				cell := len(tables[cur][row]) - 1
				tables[cur][row][cell] += string(el)
			}
		}
	}
	return tables
}
