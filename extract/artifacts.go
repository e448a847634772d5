package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/amitakki/ocr-chatqa/core"
)

// ArtifactStore manages the durable files produced for each document: the
// uploaded original, the OCR-overlaid searchable copy, and the extracted
// text rendition. All writes go through a temp file plus rename so a crash
// never leaves a half-written artifact under a final name.
type ArtifactStore struct {
	dir    string
	logger *slog.Logger
}

// NewArtifactStore creates an artifact store rooted at dir, creating the
// directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &ArtifactStore{
		dir:    dir,
		logger: slog.Default().With("component", "artifacts"),
	}, nil
}

// OriginalPath returns the artifact path of the uploaded original.
func (s *ArtifactStore) OriginalPath(id core.ID, ext string) string {
	return filepath.Join(s.dir, fmt.Sprintf("doc_%d_original%s", id, ext))
}

// ConvertedPath returns the artifact path of the searchable copy.
func (s *ArtifactStore) ConvertedPath(id core.ID) string {
	return filepath.Join(s.dir, fmt.Sprintf("doc_%d_ocr_converted.pdf", id))
}

// TextPath returns the artifact path of the extracted text rendition.
func (s *ArtifactStore) TextPath(id core.ID) string {
	return filepath.Join(s.dir, fmt.Sprintf("doc_%d_extracted_text.txt", id))
}

// SaveOriginal stores the uploaded bytes and returns the artifact path.
func (s *ArtifactStore) SaveOriginal(id core.ID, ext string, data []byte) (string, error) {
	path := s.OriginalPath(id, ext)
	if err := s.write(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveText stores the extracted text rendition and returns the artifact path.
func (s *ArtifactStore) SaveText(id core.ID, text string) (string, error) {
	path := s.TextPath(id)
	if err := s.write(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

// CopyToConverted stores a copy of the file at src as the document's
// searchable artifact and returns the artifact path. Used when the OCR
// engine cannot produce a text-overlaid copy itself.
func (s *ArtifactStore) CopyToConverted(id core.ID, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open source for converted copy: %w", err)
	}
	defer in.Close()

	tmp := s.tempName()
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create converted copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write converted copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	path := s.ConvertedPath(id)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// DeleteAll removes every artifact belonging to a document.
// Deleting artifacts that were never written is a no-op.
func (s *ArtifactStore) DeleteAll(id core.ID) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, fmt.Sprintf("doc_%d_*", id)))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete artifact %s: %w", path, err)
		}
	}
	if len(matches) > 0 {
		s.logger.Debug("deleted artifacts", "docID", id, "count", len(matches))
	}
	return nil
}

func (s *ArtifactStore) write(path string, data []byte) error {
	tmp := s.tempName()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStore) tempName() string {
	return filepath.Join(s.dir, fmt.Sprintf("temp_%s", uuid.NewString()))
}
