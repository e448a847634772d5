package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/amitakki/ocr-chatqa/core"
)

// loadPDFPages pulls the text layer of a PDF, one entry per page.
// Returns an error when the PDF cannot be parsed at all; pages without a
// text layer come back as empty strings.
func loadPDFPages(ctx context.Context, data []byte) ([]core.PageText, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	pages := make([]core.PageText, 0, len(docs))
	for i, doc := range docs {
		page := i + 1
		if v, ok := doc.Metadata["page"].(int); ok && v > 0 {
			page = v
		}
		pages = append(pages, core.PageText{
			Page: page,
			Text: doc.PageContent,
		})
	}
	return pages, nil
}
