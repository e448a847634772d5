package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// TesseractEngine recognizes page text by shelling out to the tesseract
// binary. Page images are piped through stdin and text is read from stdout,
// so no intermediate files are written.
type TesseractEngine struct {
	binary   string
	language string
	logger   *slog.Logger
}

var _ Engine = (*TesseractEngine)(nil)

// NewTesseractEngine creates an engine backed by the tesseract binary.
// An empty binary defaults to "tesseract" on PATH; an empty language
// defaults to "eng".
func NewTesseractEngine(binary, language string) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{
		binary:   binary,
		language: language,
		logger:   slog.Default().With("component", "tesseract"),
	}
}

// RecognizePage runs tesseract on one page image and returns the recognized
// text. LSTM engine, uniform block segmentation.
func (e *TesseractEngine) RecognizePage(ctx context.Context, img PageImage) (string, error) {
	cmd := exec.CommandContext(ctx, e.binary,
		"stdin", "stdout",
		"-l", e.language,
		"--oem", "3",
		"--psm", "6",
	)
	cmd.Stdin = bytes.NewReader(img.Data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Error("tesseract failed", "page", img.Page, "stderr", stderr.String(), "err", err)
		if _, lookErr := exec.LookPath(e.binary); lookErr != nil {
			return "", fmt.Errorf("%w: %s not found", ErrEngineUnavailable, e.binary)
		}
		return "", fmt.Errorf("%w: page %d: %v", ErrRecognitionFailed, img.Page, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
