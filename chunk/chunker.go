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


// Package chunk splits extracted document text into retrieval units.
//
// Splitting is recursive on separator granularity: paragraph breaks first,
// then line breaks, then sentence boundaries, then words. Chunk identity is
// derived from document identity, position, and content, so re-chunking the
// same text yields the same chunk IDs.
package chunk

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/amitakki/ocr-chatqa/core"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared between
	// adjacent chunks.
	DefaultChunkOverlap = 200
)

// separators order splitting granularity from coarse to fine.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Chunker splits per-page text into overlapping chunks.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

// New creates a chunker with the given size and overlap in characters.
// The overlap must be smaller than the size or adjacent chunks could never
// advance through the text.
func New(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(separators),
	)

	return &Chunker{
		splitter: splitter,
		size:     size,
		overlap:  overlap,
	}, nil
}

// NewDefault creates a chunker with the default size and overlap.
func NewDefault() *Chunker {
	c, err := New(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		// Defaults are compile-time constants that satisfy New's checks.
		panic(err)
	}
	return c
}

// Split chunks the extracted pages of one document. Sequence numbers are
// global across the document and each chunk carries the page it came from.
// Pages with no text produce no chunks.
func (c *Chunker) Split(docID core.ID, pages []core.PageText) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	seq := 0

	for _, page := range pages {
		parts, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Page, err)
		}

		for _, text := range parts {
			if text == "" {
				continue
			}
			chunks = append(chunks, &core.Chunk{
				Id:         core.IDFromContent(fmt.Sprintf("%d:%d:%s", docID, seq, text)),
				DocumentId: docID,
				Seq:        seq,
				Page:       page.Page,
				Text:       text,
			})
			seq++
		}
	}

	return chunks, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.overlap }
