package document

import (
	"archive/zip"
	_ "embed"
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

var (
	//go:embed parts/content_types.xml
	contentTypesXML []byte
	//go:embed parts/rels.xml
	relsXML []byte
	//go:embed parts/document_rels.xml
	documentRelsXML []byte
	//go:embed parts/styles.xml
	stylesXML []byte
)

// zipEpoch is stamped on every archive entry so identical documents differ
// only in their core properties.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	application = "procscribe"
	xmlProlog   = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

type coreProperties struct {
	XMLName  xml.Name   `xml:"cp:coreProperties"`
	NSCP     string     `xml:"xmlns:cp,attr"`
	NSDC     string     `xml:"xmlns:dc,attr"`
	NSDT     string     `xml:"xmlns:dcterms,attr"`
	NSXSI    string     `xml:"xmlns:xsi,attr"`
	Title    string     `xml:"dc:title"`
	Creator  string     `xml:"dc:creator"`
	Created  w3cdtfTime `xml:"dcterms:created"`
	Modified w3cdtfTime `xml:"dcterms:modified"`
}

type w3cdtfTime struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

type appProperties struct {
	XMLName     xml.Name `xml:"Properties"`
	NS          string   `xml:"xmlns,attr"`
	Application string   `xml:"Application"`
}

// Write serializes doc as a DOCX archive. now stamps the core properties.
func Write(w io.Writer, doc Document, now time.Time) error {
	archive := zip.NewWriter(w)

	body, err := marshalPart(toWordML(doc))
	if err != nil {
		return fmt.Errorf("encode document part: %w", err)
	}
	stamp := w3cdtfTime{Type: "dcterms:W3CDTF", Value: now.UTC().Format(time.RFC3339)}
	core, err := marshalPart(coreProperties{
		NSCP:     "http://schemas.openxmlformats.org/package/2006/metadata/core-properties",
		NSDC:     "http://purl.org/dc/elements/1.1/",
		NSDT:     "http://purl.org/dc/terms/",
		NSXSI:    "http://www.w3.org/2001/XMLSchema-instance",
		Title:    doc.Title,
		Creator:  application,
		Created:  stamp,
		Modified: stamp,
	})
	if err != nil {
		return fmt.Errorf("encode core properties: %w", err)
	}
	app, err := marshalPart(appProperties{
		NS:          "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties",
		Application: application,
	})
	if err != nil {
		return fmt.Errorf("encode app properties: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", body},
		{"word/styles.xml", stylesXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"docProps/core.xml", core},
		{"docProps/app.xml", app},
	}
	for _, part := range parts {
		entry, err := archive.CreateHeader(&zip.FileHeader{
			Name:     part.name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := entry.Write(part.data); err != nil {
			return fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func marshalPart(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xmlProlog)+len(data))
	out = append(out, xmlProlog...)
	return append(out, data...), nil
}
