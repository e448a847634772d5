package storage

import (
	"testing"
	"time"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Empty(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	doc := &core.Document{
		Id:            core.ID(7),
		Filename:      "contract.pdf",
		Format:        core.FormatPDF,
		Status:        core.StatusCompleted,
		Method:        core.MethodOCR,
		FileSize:      123456,
		PageCount:     3,
		ChunkCount:    11,
		SourcePath:    "/data/artifacts/doc_7_original.pdf",
		ConvertedPath: "/data/artifacts/doc_7_ocr_converted.pdf",
		TextPath:      "/data/artifacts/doc_7_extracted_text.txt",
		UploadedAt:    now,
		StartedAt:     now.Add(time.Second),
		CompletedAt:   now.Add(5 * time.Second),
		UpdatedAt:     now.Add(5 * time.Second),
	}

	data := MarshalDocument(doc)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestMarshalUnmarshalDocument_ZeroTimes(t *testing.T) {
	doc := &core.Document{
		Id:       core.ID(1),
		Filename: "pending.docx",
		Format:   core.FormatDOCX,
		Status:   core.StatusQueued,
	}

	decoded, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.True(t, decoded.StartedAt.IsZero())
	assert.True(t, decoded.CompletedAt.IsZero())
	assert.Equal(t, doc, decoded)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		Id:         core.IDFromContent("7:0:the quick brown fox"),
		DocumentId: core.ID(7),
		Seq:        0,
		Page:       2,
		Text:       "the quick brown fox",
		Vector:     []float32{0.25, -0.5, 0.125},
	}

	data := MarshalChunk(chunk)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalChunkManifest(t *testing.T) {
	m := &core.ChunkManifest{
		DocumentId: core.ID(7),
		Epoch:      3,
		Chunks:     11,
		Model:      "text-embedding-004",
	}

	decoded, err := UnmarshalChunkManifest(MarshalChunkManifest(m))
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestUnmarshalDocument_Truncated(t *testing.T) {
	doc := &core.Document{Id: 1, Filename: "x.pdf", Status: core.StatusQueued}
	data := MarshalDocument(doc)

	_, err := UnmarshalDocument(data[:len(data)/2])
	assert.Error(t, err)
}
