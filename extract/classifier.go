// Copyright 2025 Amit Akki
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amitakki/ocr-chatqa/core"
)

const (
	// classifySamplePages bounds how many leading pages are inspected.
	classifySamplePages = 3

	// textLayerThreshold is the minimum number of extractable characters on
	// a sampled page for the document to count as text-native.
	textLayerThreshold = 50
)

// Classifier decides which extraction strategy a document requires.
//
// Classification is deterministic and side-effect free: the same bytes and
// declared format always produce the same decision, so it can be re-run
// independently of extraction.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		logger: slog.Default().With("component", "classifier"),
	}
}

// Classify inspects document bytes and the declared format.
//
// PDFs are sampled: if any of the first few pages carries a meaningful text
// layer the document is text-native, otherwise it is scanned. Malformed PDFs
// degrade to scanned rather than failing, since the OCR path can still
// produce usable output from whatever rasterizes. DOCX and HTML always have
// a direct extraction path; unknown formats have none.
func (c *Classifier) Classify(ctx context.Context, data []byte, format core.Format) core.Classification {
	switch format {
	case core.FormatDOCX, core.FormatHTML:
		return core.ClassificationNativeText
	case core.FormatPDF:
		return c.classifyPDF(ctx, data)
	default:
		return core.ClassificationUnsupported
	}
}

func (c *Classifier) classifyPDF(ctx context.Context, data []byte) core.Classification {
	pages, err := loadPDFPages(ctx, data)
	if err != nil {
		// Degraded, not fatal: OCR on a native-text PDF still yields
		// usable text.
		c.logger.Warn("classification degraded to scanned", "err", err)
		return core.ClassificationScanned
	}

	sample := min(classifySamplePages, len(pages))
	for i := 0; i < sample; i++ {
		if len(strings.TrimSpace(pages[i].Text)) > textLayerThreshold {
			return core.ClassificationNativeText
		}
	}
	return core.ClassificationScanned
}
