package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// CommandRasterizer renders PDF pages to PNG images by shelling out to
// pdftoppm (poppler-utils).
type CommandRasterizer struct {
	binary  string
	tempDir string
	logger  *slog.Logger
}

var _ Rasterizer = (*CommandRasterizer)(nil)

// NewCommandRasterizer creates a rasterizer backed by the pdftoppm binary.
// An empty binary defaults to "pdftoppm" on PATH; an empty tempDir defaults
// to the OS temp directory.
func NewCommandRasterizer(binary, tempDir string) *CommandRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &CommandRasterizer{
		binary:  binary,
		tempDir: tempDir,
		logger:  slog.Default().With("component", "pdftoppm"),
	}
}

// Rasterize renders every page of the PDF at path into PNG images.
func (r *CommandRasterizer) Rasterize(ctx context.Context, path string, dpi int) ([]PageImage, error) {
	workDir := filepath.Join(r.tempDir, fmt.Sprintf("raster_%s", uuid.NewString()))
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizeFailed, err)
	}
	defer os.RemoveAll(workDir)

	outPrefix := filepath.Join(workDir, "page")
	cmd := exec.CommandContext(ctx, r.binary,
		"-png",
		"-r", fmt.Sprintf("%d", dpi),
		path,
		outPrefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Error("pdftoppm failed", "path", path, "output", string(out), "err", err)
		if _, lookErr := exec.LookPath(r.binary); lookErr != nil {
			return nil, fmt.Errorf("%w: %s not found", ErrEngineUnavailable, r.binary)
		}
		return nil, fmt.Errorf("%w: %v", ErrRasterizeFailed, err)
	}

	// pdftoppm names output page-1.png, page-2.png, ... with zero padding
	// dependent on page count; lexicographic sort of equal-width names is
	// page order.
	matches, err := filepath.Glob(outPrefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizeFailed, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no pages rendered", ErrRasterizeFailed)
	}
	sort.Strings(matches)

	images := make([]PageImage, 0, len(matches))
	for i, file := range matches {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRasterizeFailed, err)
		}
		images = append(images, PageImage{
			Page:   i + 1,
			DPI:    dpi,
			Data:   data,
			Format: "png",
		})
	}

	r.logger.Debug("rasterized document", "path", path, "pages", len(images), "dpi", dpi)
	return images, nil
}
