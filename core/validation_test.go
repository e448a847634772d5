package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc:  &Document{Filename: "report.pdf", Format: FormatPDF, Status: StatusQueued},
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty filename",
			doc:     &Document{Status: StatusQueued},
			wantErr: ErrEmptyFilename,
		},
		{
			name:    "invalid status",
			doc:     &Document{Filename: "report.pdf", Status: ProcessingStatus(99)},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:  "valid chunk",
			chunk: &Chunk{DocumentId: 1, Text: "some text"},
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty text",
			chunk:   &Chunk{DocumentId: 1},
			wantErr: ErrEmptyChunkText,
		},
		{
			name:    "missing document id",
			chunk:   &Chunk{Text: "some text"},
			wantErr: ErrInvalidChunk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(StatusQueued, StatusClassifying); err != nil {
		t.Errorf("forward transition should be valid: %v", err)
	}

	err := ValidateTransition(StatusExtracting, StatusQueued)
	if !errors.Is(err, ErrStatusRegression) {
		t.Errorf("backward transition error = %v, want ErrStatusRegression", err)
	}

	err = ValidateTransition(StatusCompleted, StatusFailed)
	if !errors.Is(err, ErrStatusRegression) {
		t.Errorf("post-terminal transition error = %v, want ErrStatusRegression", err)
	}
}
