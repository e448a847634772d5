package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

func makeTestChunks(docID core.ID, n int, fill float32) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		text := fmt.Sprintf("chunk %d of document %d", i, docID)
		chunks[i] = &core.Chunk{
			Id:         core.IDFromContent(fmt.Sprintf("%d:%d:%s", docID, i, text)),
			DocumentId: docID,
			Seq:        i,
			Page:       i/2 + 1,
			Text:       text,
			Vector:     []float32{fill, float32(i)},
		}
	}
	return chunks
}

func TestChunkIndexUpsertAndRead(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.ID(42)

	chunks := makeTestChunks(docID, 5, 1.0)
	if err := index.Upsert(ctx, docID, chunks, "nomic-embed-text"); err != nil {
		t.Fatalf("Failed to upsert chunks: %v", err)
	}

	stored, err := index.Chunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to read chunks: %v", err)
	}
	if len(stored) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(stored))
	}
	for i, chunk := range stored {
		if chunk.Seq != i {
			t.Fatalf("Position %d: expected seq %d, got %d", i, i, chunk.Seq)
		}
	}

	count, err := index.Count(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 5 {
		t.Fatalf("Expected count 5, got %d", count)
	}

	model, err := index.Model(ctx)
	if err != nil {
		t.Fatalf("Failed to read model: %v", err)
	}
	if model != "nomic-embed-text" {
		t.Fatalf("Expected 'nomic-embed-text', got '%s'", model)
	}
}

func TestChunkIndexUpsertReplaces(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.ID(7)

	if err := index.Upsert(ctx, docID, makeTestChunks(docID, 8, 1.0), "m1"); err != nil {
		t.Fatalf("Failed to upsert first set: %v", err)
	}
	if err := index.Upsert(ctx, docID, makeTestChunks(docID, 3, 2.0), "m1"); err != nil {
		t.Fatalf("Failed to upsert second set: %v", err)
	}

	stored, err := index.Chunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to read chunks: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("Expected 3 chunks after replacement, got %d", len(stored))
	}
	for _, chunk := range stored {
		if chunk.Vector[0] != 2.0 {
			t.Fatalf("Expected replacement vectors, got %v", chunk.Vector)
		}
	}
}

func TestChunkIndexSearch(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	// Two documents. Doc 1 chunks align with the query axis, doc 2 chunks
	// are orthogonal to it.
	doc1 := []*core.Chunk{
		{Id: 1, DocumentId: 1, Seq: 0, Page: 1, Text: "aligned strongly", Vector: []float32{1.0, 0.0}},
		{Id: 2, DocumentId: 1, Seq: 1, Page: 1, Text: "aligned weakly", Vector: []float32{0.5, 0.0}},
	}
	doc2 := []*core.Chunk{
		{Id: 3, DocumentId: 2, Seq: 0, Page: 1, Text: "orthogonal", Vector: []float32{0.0, 1.0}},
	}

	if err := index.Upsert(ctx, 1, doc1, "m1"); err != nil {
		t.Fatalf("Failed to upsert doc 1: %v", err)
	}
	if err := index.Upsert(ctx, 2, doc2, "m1"); err != nil {
		t.Fatalf("Failed to upsert doc 2: %v", err)
	}

	results, err := index.Search(ctx, []float32{1.0, 0.0}, 2, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "aligned strongly" {
		t.Fatalf("Expected best match first, got '%s'", results[0].Chunk.Text)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("Expected descending scores, got %f then %f", results[0].Score, results[1].Score)
	}

	// Filtered search only consults the named document
	filtered, err := index.Search(ctx, []float32{1.0, 0.0}, 10, &storage.SearchFilter{DocumentID: 2})
	if err != nil {
		t.Fatalf("Filtered search failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Chunk.DocumentId != 2 {
		t.Fatalf("Expected only doc 2 chunks, got %d results", len(filtered))
	}
}

func TestChunkIndexSearchInvalidQuery(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()

	if _, err := index.Search(ctx, []float32{1.0}, 0, nil); err != storage.ErrInvalidQuery {
		t.Fatalf("Expected ErrInvalidQuery for k=0, got %v", err)
	}
	if _, err := index.Search(ctx, nil, 5, nil); err != storage.ErrInvalidQuery {
		t.Fatalf("Expected ErrInvalidQuery for empty vector, got %v", err)
	}
}

func TestChunkIndexDeleteIdempotent(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.ID(9)

	if err := index.Upsert(ctx, docID, makeTestChunks(docID, 4, 1.0), "m1"); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if err := index.Delete(ctx, docID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	stored, err := index.Chunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to read chunks: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("Expected no chunks after delete, got %d", len(stored))
	}

	ids, err := index.DocumentIDs(ctx)
	if err != nil {
		t.Fatalf("Failed to list document IDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected no document IDs after delete, got %v", ids)
	}

	// Deleting again is a no-op
	if err := index.Delete(ctx, docID); err != nil {
		t.Fatalf("Expected no-op on repeated delete, got %v", err)
	}
}

// TestChunkIndexNoTornReads upserts repeatedly while searching concurrently
// and verifies every search observes a complete chunk set for the document.
func TestChunkIndexNoTornReads(t *testing.T) {
	registry, index, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer func() { registry.Close(); backend.Close() }()

	ctx := context.Background()
	docID := core.ID(3)

	// Alternate between two set sizes; readers must always see one of them
	// in full, never a mix.
	sizes := []int{6, 11}
	if err := index.Upsert(ctx, docID, makeTestChunks(docID, sizes[0], 1.0), "m1"); err != nil {
		t.Fatalf("Failed to seed index: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var torn error
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			stored, err := index.Chunks(ctx, docID)
			if err != nil {
				mu.Lock()
				torn = err
				mu.Unlock()
				return
			}
			if len(stored) != sizes[0] && len(stored) != sizes[1] {
				mu.Lock()
				torn = fmt.Errorf("observed partial chunk set of %d", len(stored))
				mu.Unlock()
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		n := sizes[i%2]
		if err := index.Upsert(ctx, docID, makeTestChunks(docID, n, float32(i)), "m1"); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}
	close(done)
	wg.Wait()

	if torn != nil {
		t.Fatalf("Torn read detected: %v", torn)
	}
}
