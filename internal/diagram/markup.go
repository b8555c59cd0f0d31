package diagram

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

var fencedDiagram = regexp.MustCompile("(?is)```[ \t]*(?:xml|drawio|mxfile)\\b(.*?)```")

// ExtractMarkup returns the trimmed body of the first fenced xml, drawio or
// mxfile block in reply.
func ExtractMarkup(reply string) (string, error) {
	m := fencedDiagram.FindStringSubmatch(reply)
	if m == nil {
		return "", ErrNoDiagram
	}
	markup := strings.TrimSpace(m[1])
	if markup == "" {
		return "", ErrNoDiagram
	}
	return markup, nil
}

// Stats summarizes a diagram's graph.
type Stats struct {
	Diagrams int
	Vertices int
	Edges    int
}

// Inspect counts diagrams, vertices and edges in markup. A decode error is
// returned together with the counts gathered so far.
func Inspect(markup string) (Stats, error) {
	var stats Stats
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = true
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "diagram":
			stats.Diagrams++
		case "mxCell":
			for _, attr := range start.Attr {
				if attr.Value != "1" {
					continue
				}
				switch attr.Name.Local {
				case "vertex":
					stats.Vertices++
				case "edge":
					stats.Edges++
				}
			}
		}
	}
}
