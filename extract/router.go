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
	"fmt"
	"log/slog"
	"strings"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/extract/ocr"
)

const (
	// defaultDPI is the rasterization resolution for OCR extraction.
	defaultDPI = 300

	// nearEmptyThreshold is the minimum total extractable characters below
	// which a method's output triggers the fallback attempt.
	nearEmptyThreshold = 32
)

// Result is the normalized output of extraction.
type Result struct {
	// Pages holds per-page (or per-section) plain text, in order.
	Pages []core.PageText

	// Method is the strategy that produced the text.
	Method core.ExtractionMethod

	// ConvertedPath is the searchable-copy artifact, set for OCR extraction.
	ConvertedPath string

	// TextPath is the extracted-text artifact.
	TextPath string
}

// Router invokes the extraction strategy matching a document's
// classification and normalizes output to plain text with page metadata.
//
// Fallback policy: when the primary method for a classification yields
// empty or near-empty text, the alternate PDF method is attempted exactly
// once. There are no fallback loops.
type Router struct {
	engine     ocr.Engine
	rasterizer ocr.Rasterizer
	artifacts  *ArtifactStore
	dpi        int
	logger     *slog.Logger
}

// RouterOption is a functional option for configuring a Router.
type RouterOption func(*Router) error

// WithDPI sets the rasterization resolution for OCR extraction.
func WithDPI(dpi int) RouterOption {
	return func(r *Router) error {
		if dpi < 72 {
			return fmt.Errorf("dpi %d too low for recognition", dpi)
		}
		r.dpi = dpi
		return nil
	}
}

// NewRouter creates an extraction router.
func NewRouter(engine ocr.Engine, rasterizer ocr.Rasterizer, artifacts *ArtifactStore, opts ...RouterOption) (*Router, error) {
	r := &Router{
		engine:     engine,
		rasterizer: rasterizer,
		artifacts:  artifacts,
		dpi:        defaultDPI,
		logger:     slog.Default().With("component", "extraction-router"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Extract runs the strategy matching the classification on the document and
// writes the derived artifacts. The document's SourcePath must point at the
// stored original for OCR extraction.
func (r *Router) Extract(ctx context.Context, doc *core.Document, data []byte, class core.Classification) (*Result, error) {
	var pages []core.PageText
	var method core.ExtractionMethod
	var err error

	switch class {
	case core.ClassificationNativeText:
		pages, method, err = r.extractNative(ctx, doc, data)
	case core.ClassificationScanned:
		pages, method, err = r.extractScanned(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, doc.Format)
	}

	// One fallback attempt between the two PDF methods.
	if doc.Format == core.FormatPDF && (err != nil || nearEmpty(pages)) {
		fbPages, fbMethod, fbErr := r.fallback(ctx, doc, data, method, err)
		if fbErr == nil && !nearEmpty(fbPages) {
			pages, method, err = fbPages, fbMethod, nil
		}
	}

	if err != nil {
		return nil, err
	}
	if nearEmpty(pages) {
		return nil, newExtractionError(method, fmt.Errorf("no extractable text"))
	}

	result := &Result{Pages: pages, Method: method}

	textPath, err := r.artifacts.SaveText(doc.Id, joinPages(pages))
	if err != nil {
		return nil, newExtractionError(method, err)
	}
	result.TextPath = textPath

	if method == core.MethodOCR {
		converted, err := r.saveSearchableCopy(ctx, doc)
		if err != nil {
			return nil, newExtractionError(method, err)
		}
		result.ConvertedPath = converted
	}

	return result, nil
}

func (r *Router) extractNative(ctx context.Context, doc *core.Document, data []byte) ([]core.PageText, core.ExtractionMethod, error) {
	switch doc.Format {
	case core.FormatPDF:
		pages, err := loadPDFPages(ctx, data)
		if err != nil {
			return nil, core.MethodDirect, newExtractionError(core.MethodDirect, err)
		}
		return pages, core.MethodDirect, nil
	case core.FormatDOCX:
		pages, err := loadDOCXText(data)
		if err != nil {
			return nil, core.MethodStructured, newExtractionError(core.MethodStructured, err)
		}
		return pages, core.MethodStructured, nil
	case core.FormatHTML:
		pages, err := loadHTMLText(ctx, data)
		if err != nil {
			return nil, core.MethodStructured, newExtractionError(core.MethodStructured, err)
		}
		return pages, core.MethodStructured, nil
	default:
		return nil, core.MethodNone, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, doc.Format)
	}
}

func (r *Router) extractScanned(ctx context.Context, doc *core.Document) ([]core.PageText, core.ExtractionMethod, error) {
	images, err := r.rasterizer.Rasterize(ctx, doc.SourcePath, r.dpi)
	if err != nil {
		return nil, core.MethodOCR, newExtractionError(core.MethodOCR, err)
	}

	pages := make([]core.PageText, 0, len(images))
	for _, img := range images {
		text, err := r.engine.RecognizePage(ctx, img)
		if err != nil {
			return nil, core.MethodOCR, newExtractionError(core.MethodOCR, err)
		}
		// Blank pages recognize to empty text; keep the page slot so page
		// numbers in chunk metadata stay truthful.
		pages = append(pages, core.PageText{Page: img.Page, Text: text})
	}
	return pages, core.MethodOCR, nil
}

// fallback runs the alternate PDF method once.
func (r *Router) fallback(ctx context.Context, doc *core.Document, data []byte, primary core.ExtractionMethod, primaryErr error) ([]core.PageText, core.ExtractionMethod, error) {
	r.logger.Info("primary extraction yielded no usable text, trying alternate method",
		"docID", doc.Id, "primary", primary, "err", primaryErr)

	if primary == core.MethodOCR {
		pages, err := loadPDFPages(ctx, data)
		if err != nil {
			return nil, core.MethodDirect, newExtractionError(core.MethodDirect, err)
		}
		return pages, core.MethodDirect, nil
	}
	return r.extractScanned(ctx, doc)
}

// saveSearchableCopy produces the OCR-overlaid artifact. Engines that can't
// emit a text layer fall back to a plain copy of the original, so the
// artifact path is always populated for OCR extraction.
func (r *Router) saveSearchableCopy(ctx context.Context, doc *core.Document) (string, error) {
	if converter, ok := r.engine.(ocr.DocumentConverter); ok {
		dst := r.artifacts.ConvertedPath(doc.Id)
		if err := converter.ConvertToSearchable(ctx, doc.SourcePath, dst); err == nil {
			return dst, nil
		} else {
			r.logger.Warn("searchable conversion failed, copying original", "docID", doc.Id, "err", err)
		}
	}
	return r.artifacts.CopyToConverted(doc.Id, doc.SourcePath)
}

func nearEmpty(pages []core.PageText) bool {
	total := 0
	for _, page := range pages {
		total += len(strings.TrimSpace(page.Text))
		if total >= nearEmptyThreshold {
			return false
		}
	}
	return true
}

func joinPages(pages []core.PageText) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.Text)
	}
	return strings.Join(parts, "\n\n")
}
