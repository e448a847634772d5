package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/amitakki/ocr-chatqa/core"
)

// loadHTMLText strips markup from an HTML document and returns its visible
// text as a single section.
func loadHTMLText(ctx context.Context, data []byte) ([]core.PageText, error) {
	loader := documentloaders.NewHTML(bytes.NewReader(data))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var parts []string
	for _, doc := range docs {
		if text := strings.TrimSpace(doc.PageContent); text != "" {
			parts = append(parts, text)
		}
	}

	return []core.PageText{{Page: 1, Text: strings.Join(parts, "\n")}}, nil
}
