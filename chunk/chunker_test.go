package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitakki/ocr-chatqa/core"
)

func TestNewRejectsBadParameters(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)

	_, err = New(100, 100)
	assert.Error(t, err, "overlap equal to size never advances")

	_, err = New(100, 150)
	assert.Error(t, err)

	_, err = New(100, -1)
	assert.Error(t, err)

	_, err = New(100, 20)
	assert.NoError(t, err)
}

func TestSplitShortText(t *testing.T) {
	chunker := NewDefault()

	pages := []core.PageText{{Page: 1, Text: "A short note that fits in one chunk."}}
	chunks, err := chunker.Split(42, pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, core.ID(42), chunks[0].DocumentId)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[0].Page)
	assert.NotZero(t, chunks[0].Id)
	assert.Equal(t, pages[0].Text, chunks[0].Text)
}

func TestSplitLongTextProducesOverlappingChunks(t *testing.T) {
	chunker, err := New(100, 20)
	require.NoError(t, err)

	// Build text well past one chunk, with sentence boundaries to split on
	var builder strings.Builder
	for i := 0; i < 40; i++ {
		builder.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	pages := []core.PageText{{Page: 1, Text: builder.String()}}

	chunks, err := chunker.Split(1, pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Seq)
		assert.LessOrEqual(t, len(chunk.Text), 100+20, "chunks stay near the configured size")
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestSplitSequenceSpansPages(t *testing.T) {
	chunker := NewDefault()

	pages := []core.PageText{
		{Page: 1, Text: "Page one content."},
		{Page: 2, Text: ""},
		{Page: 3, Text: "Page three content."},
	}

	chunks, err := chunker.Split(7, pages)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "empty page yields no chunks")

	// Global sequence, per-chunk page back-reference
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 1, chunks[1].Seq)
	assert.Equal(t, 3, chunks[1].Page)
}

func TestSplitIsDeterministic(t *testing.T) {
	chunker := NewDefault()
	pages := []core.PageText{{Page: 1, Text: "Stable content hashes to stable identity."}}

	first, err := chunker.Split(9, pages)
	require.NoError(t, err)
	second, err := chunker.Split(9, pages)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
	}

	// Different document, same text: different identity
	other, err := chunker.Split(10, pages)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Id, other[0].Id)
}
