package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/amitakki/ocr-chatqa/core"
)

// loadDOCXText walks the main document part of a DOCX archive and collects
// paragraph text. DOCX has no fixed page layout before rendering, so the
// whole body is returned as a single section.
func loadDOCXText(data []byte) ([]core.PageText, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}

	reader, err := document.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read docx body: %w", err)
	}
	defer reader.Close()

	text, err := collectDOCXParagraphs(reader)
	if err != nil {
		return nil, err
	}

	return []core.PageText{{Page: 1, Text: text}}, nil
}

// collectDOCXParagraphs streams the document XML, joining w:t runs within a
// w:p paragraph and separating paragraphs with newlines.
func collectDOCXParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	var inText bool

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
