package document

import (
	"fmt"
	"strconv"

	"procscribe/internal/process"
)

// Column widths in twentieths of a point.
const (
	NumberColumnWidth    = 720  // 0.5in
	StepColumnWidth      = 6480 // 4.5in
	TimestampColumnWidth = 2160 // 1.5in

	GroupHeaderFill = "D1E2F8"
)

// Document is an ordered list of blocks.
type Document struct {
	Title  string
	Blocks []Block
}

// Block is a top-level body element.
type Block interface {
	block()
}

// Heading is a styled heading paragraph.
type Heading struct {
	Level int
	Text  string
}

// Paragraph is a body text paragraph.
type Paragraph struct {
	Text string
}

// Table is a grid of rows. Widths holds one entry per grid column; nil lets
// the table share the page width evenly.
type Table struct {
	Widths []int
	Rows   []Row
}

// Row is a table row.
type Row struct {
	Cells []Cell
}

// Cell is a table cell. Span > 1 merges the cell across grid columns.
type Cell struct {
	Text   string
	Bold   bool
	Span   int
	Fill   string
	Border *Border
}

// Border describes the edges drawn around a cell.
type Border struct {
	Style string
	Size  int
}

func (Heading) block() {}

func (Paragraph) block() {}

func (*Table) block() {}

// Tables returns the document's tables in order.
func (d Document) Tables() []*Table {
	var tables []*Table
	for _, b := range d.Blocks {
		if t, ok := b.(*Table); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// Build lays out desc as a Document.
func Build(desc process.Description) Document {
	doc := Document{Title: desc.ProcessName}
	add := func(b Block) { doc.Blocks = append(doc.Blocks, b) }

	add(Heading{Level: 1, Text: "Process Name: " + desc.ProcessName})
	add(Paragraph{Text: desc.ShortDescription})

	add(Heading{Level: 2, Text: "List of applications"})
	apps := &Table{Rows: []Row{headerRow("Application Name", "Type", "URL")}}
	for _, app := range desc.Applications {
		apps.Rows = append(apps.Rows, textRow(app.Name, app.Type, app.URL))
	}
	add(apps)

	add(Heading{Level: 2, Text: "List of steps"})
	for _, group := range desc.Steps {
		steps := &Table{
			Widths: []int{NumberColumnWidth, StepColumnWidth, TimestampColumnWidth},
			Rows: []Row{{Cells: []Cell{{
				Text: fmt.Sprintf("%s %s", group.Numbering, group.GroupName),
				Bold: true,
				Span: 3,
				Fill: GroupHeaderFill,
			}}}},
		}
		for _, sub := range group.SubSteps {
			steps.Rows = append(steps.Rows, textRow(sub.Numbering, sub.Step, sub.Timestamp))
		}
		add(steps)
	}

	if len(desc.Exceptions) > 0 {
		add(Heading{Level: 2, Text: "Exceptions"})
		exceptions := &Table{Rows: []Row{headerRow("Exception", "Description")}}
		for _, exc := range desc.Exceptions {
			exceptions.Rows = append(exceptions.Rows, textRow(exc.Name, exc.Description))
		}
		add(exceptions)
	}

	if len(desc.Clarifications) > 0 {
		add(Heading{Level: 2, Text: "Clarifications"})
		for i, question := range desc.Clarifications {
			add(Paragraph{Text: strconv.Itoa(i+1) + ". " + question})
		}
	}

	applyBorders(&doc, Border{Style: "single", Size: 4})
	return doc
}

// applyBorders sets border on every cell of every table.
func applyBorders(doc *Document, border Border) {
	for _, table := range doc.Tables() {
		for ri := range table.Rows {
			for ci := range table.Rows[ri].Cells {
				b := border
				table.Rows[ri].Cells[ci].Border = &b
			}
		}
	}
}

func headerRow(labels ...string) Row {
	row := Row{Cells: make([]Cell, len(labels))}
	for i, label := range labels {
		row.Cells[i] = Cell{Text: label, Bold: true}
	}
	return row
}

func textRow(values ...string) Row {
	row := Row{Cells: make([]Cell, len(values))}
	for i, value := range values {
		row.Cells[i] = Cell{Text: value}
	}
	return row
}
