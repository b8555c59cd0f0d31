package document

import (
	"encoding/xml"
	"strconv"
)

// WordprocessingML element names carry their "w:" prefix literally; the
// namespace is declared once on the root element.
const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	pageWidth   = 12240
	pageHeight  = 15840
	pageMargin  = 1440
	contentWide = pageWidth - 2*pageMargin
)

type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	NSW     string   `xml:"xmlns:w,attr"`
	NSR     string   `xml:"xmlns:r,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Blocks []any
	SectPr wSectPr `xml:"w:sectPr"`
}

type wSectPr struct {
	Size   wPageSize   `xml:"w:pgSz"`
	Margin wPageMargin `xml:"w:pgMar"`
}

type wPageSize struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type wPageMargin struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
	Gutter int `xml:"w:gutter,attr"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wOn struct{}

type wParagraph struct {
	XMLName xml.Name `xml:"w:p"`
	PPr     *wPPr    `xml:"w:pPr,omitempty"`
	Runs    []wRun   `xml:"w:r"`
}

type wPPr struct {
	Style *wVal `xml:"w:pStyle,omitempty"`
	Jc    *wVal `xml:"w:jc,omitempty"`
}

type wRun struct {
	RPr  *wRPr `xml:"w:rPr,omitempty"`
	Text wText `xml:"w:t"`
}

type wRPr struct {
	Bold *wOn `xml:"w:b,omitempty"`
}

type wText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

type wTable struct {
	XMLName xml.Name `xml:"w:tbl"`
	Props   wTblPr   `xml:"w:tblPr"`
	Grid    wTblGrid `xml:"w:tblGrid"`
	Rows    []wRow   `xml:"w:tr"`
}

type wTblPr struct {
	Width  wWidth `xml:"w:tblW"`
	Layout *wType `xml:"w:tblLayout,omitempty"`
	Look   wVal   `xml:"w:tblLook"`
}

type wType struct {
	Type string `xml:"w:type,attr"`
}

type wWidth struct {
	W    int    `xml:"w:w,attr"`
	Type string `xml:"w:type,attr"`
}

type wTblGrid struct {
	Cols []wGridCol `xml:"w:gridCol"`
}

type wGridCol struct {
	W int `xml:"w:w,attr"`
}

type wRow struct {
	Cells []wCell `xml:"w:tc"`
}

type wCell struct {
	Props      wTcPr        `xml:"w:tcPr"`
	Paragraphs []wParagraph `xml:"w:p"`
}

type wTcPr struct {
	Width    wWidth    `xml:"w:tcW"`
	GridSpan *wVal     `xml:"w:gridSpan,omitempty"`
	Borders  *wBorders `xml:"w:tcBorders,omitempty"`
	Shading  *wShading `xml:"w:shd,omitempty"`
}

type wBorders struct {
	Top     wBorder `xml:"w:top"`
	Left    wBorder `xml:"w:left"`
	Bottom  wBorder `xml:"w:bottom"`
	Right   wBorder `xml:"w:right"`
	InsideH wBorder `xml:"w:insideH"`
	InsideV wBorder `xml:"w:insideV"`
}

type wBorder struct {
	Val   string `xml:"w:val,attr"`
	Size  int    `xml:"w:sz,attr"`
	Space int    `xml:"w:space,attr"`
	Color string `xml:"w:color,attr"`
}

type wShading struct {
	Val   string `xml:"w:val,attr"`
	Color string `xml:"w:color,attr"`
	Fill  string `xml:"w:fill,attr"`
}

func toWordML(doc Document) wDocument {
	out := wDocument{
		NSW: nsW,
		NSR: nsR,
		Body: wBody{
			SectPr: wSectPr{
				Size: wPageSize{W: pageWidth, H: pageHeight},
				Margin: wPageMargin{
					Top: pageMargin, Right: pageMargin, Bottom: pageMargin, Left: pageMargin,
					Header: 720, Footer: 720,
				},
			},
		},
	}
	for _, block := range doc.Blocks {
		switch b := block.(type) {
		case Heading:
			out.Body.Blocks = append(out.Body.Blocks, styledParagraph("Heading"+strconv.Itoa(b.Level), b.Text, false))
		case Paragraph:
			out.Body.Blocks = append(out.Body.Blocks, styledParagraph("", b.Text, false))
		case *Table:
			out.Body.Blocks = append(out.Body.Blocks, tableML(b))
		}
	}
	return out
}

func styledParagraph(style, text string, bold bool) wParagraph {
	p := wParagraph{}
	if style != "" {
		p.PPr = &wPPr{Style: &wVal{Val: style}}
	}
	if text == "" {
		return p
	}
	run := wRun{Text: wText{Value: text}}
	if needsPreserve(text) {
		run.Text.Space = "preserve"
	}
	if bold {
		run.RPr = &wRPr{Bold: &wOn{}}
	}
	p.Runs = []wRun{run}
	return p
}

func needsPreserve(text string) bool {
	return text[0] == ' ' || text[len(text)-1] == ' ' || text[0] == '\t' || text[len(text)-1] == '\t'
}

func tableML(t *Table) wTable {
	widths := columnWidths(t)
	total := 0
	for _, w := range widths {
		total += w
	}
	out := wTable{
		Props: wTblPr{
			Width: wWidth{W: total, Type: "dxa"},
			Look:  wVal{Val: "04A0"},
		},
	}
	if t.Widths != nil {
		out.Props.Layout = &wType{Type: "fixed"}
	}
	for _, w := range widths {
		out.Grid.Cols = append(out.Grid.Cols, wGridCol{W: w})
	}
	for _, row := range t.Rows {
		var wr wRow
		col := 0
		for _, cell := range row.Cells {
			span := cell.Span
			if span < 1 {
				span = 1
			}
			width := 0
			for i := col; i < col+span && i < len(widths); i++ {
				width += widths[i]
			}
			col += span

			props := wTcPr{Width: wWidth{W: width, Type: "dxa"}}
			if span > 1 {
				props.GridSpan = &wVal{Val: strconv.Itoa(span)}
			}
			if cell.Border != nil {
				props.Borders = bordersML(*cell.Border)
			}
			if cell.Fill != "" {
				props.Shading = &wShading{Val: "clear", Color: "auto", Fill: cell.Fill}
			}
			para := styledParagraph("", cell.Text, cell.Bold)
			if span > 1 {
				if para.PPr == nil {
					para.PPr = &wPPr{}
				}
				para.PPr.Jc = &wVal{Val: "left"}
			}
			wr.Cells = append(wr.Cells, wCell{Props: props, Paragraphs: []wParagraph{para}})
		}
		out.Rows = append(out.Rows, wr)
	}
	return out
}

// columnWidths returns explicit widths or an even split of the text area.
func columnWidths(t *Table) []int {
	if t.Widths != nil {
		return t.Widths
	}
	cols := 0
	for _, row := range t.Rows {
		n := 0
		for _, cell := range row.Cells {
			if cell.Span > 1 {
				n += cell.Span
			} else {
				n++
			}
		}
		if n > cols {
			cols = n
		}
	}
	if cols == 0 {
		cols = 1
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = contentWide / cols
	}
	return widths
}

func bordersML(b Border) *wBorders {
	edge := wBorder{Val: b.Style, Size: b.Size, Space: 0, Color: "auto"}
	return &wBorders{Top: edge, Left: edge, Bottom: edge, Right: edge, InsideH: edge, InsideV: edge}
}
