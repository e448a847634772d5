package ocr

import "context"

// PageImage is one rasterized page of a scanned document.
type PageImage struct {
	// Page is the 1-based page number within the source document.
	Page int

	// DPI is the resolution the page was rendered at.
	DPI int

	// Data is the encoded image bytes.
	Data []byte

	// Format is the image encoding, e.g. "png".
	Format string
}

// Engine recognizes text in a page image.
// Implementations must be thread-safe for concurrent use.
type Engine interface {
	// RecognizePage returns the text recognized on one page.
	// An empty string means the engine ran successfully and found no text;
	// an error means recognition itself failed.
	RecognizePage(ctx context.Context, img PageImage) (string, error)
}

// Rasterizer renders the pages of a PDF file into images for recognition.
type Rasterizer interface {
	// Rasterize renders every page of the PDF at path into images at the
	// given resolution, in page order.
	Rasterize(ctx context.Context, path string, dpi int) ([]PageImage, error)
}

// DocumentConverter is an optional capability of an Engine: producing a
// searchable PDF copy of a scanned document with a recognized text layer.
// Engines that cannot produce one simply don't implement this interface and
// the caller keeps the original file as the converted artifact.
type DocumentConverter interface {
	// ConvertToSearchable writes a searchable copy of the PDF at src to dst.
	ConvertToSearchable(ctx context.Context, src, dst string) error
}
