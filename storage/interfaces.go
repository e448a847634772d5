package storage

import (
	"context"

	"github.com/amitakki/ocr-chatqa/core"
)

// DocumentRegistry is the durable record of each document's lifecycle state,
// independent of the vector index. Implementations must be thread-safe and
// survive process restarts.
type DocumentRegistry interface {
	// Create adds a new document record.
	// For documents with ID=0, generates a new ID from sequence.
	// Sets UploadedAt and UpdatedAt timestamps if not already set.
	// Returns the record with the generated ID and timestamps populated.
	Create(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a document record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// List retrieves all document records ordered by upload time, newest first.
	List(ctx context.Context) ([]*core.Document, error)

	// UpdateStatus moves a document to a new lifecycle status, enforcing the
	// forward-only transition rule. The reason is stored for StatusFailed and
	// ignored otherwise. Returns ErrNotFound for unknown IDs and
	// core.ErrStatusRegression for backward moves.
	UpdateStatus(ctx context.Context, id core.ID, status core.ProcessingStatus, reason string) (*core.Document, error)

	// Update rewrites a document record. A status change in the update is
	// validated against the stored record's status (forward-only).
	// Returns ErrNotFound if the record doesn't exist.
	Update(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Delete removes a document record by ID.
	// Deleting an absent ID is a no-op, not an error.
	Delete(ctx context.Context, id core.ID) error

	// Close releases registry resources.
	Close() error
}

// SearchFilter restricts a similarity search.
// The zero value matches all chunks.
type SearchFilter struct {
	// DocumentID limits results to one document when non-zero.
	DocumentID core.ID
}

// ChunkIndex stores chunk vectors keyed by document identity.
// A document's chunk set is committed atomically: searches never observe a
// subset of a document's chunks mid-write. Implementations must be
// thread-safe; Upsert/Delete callers are expected to hold a per-document
// writer lock (see the index package).
type ChunkIndex interface {
	// Upsert atomically replaces the full chunk set for a document.
	// Chunks become visible to Search all at once; a failed upsert leaves
	// the previously committed set untouched.
	Upsert(ctx context.Context, docID core.ID, chunks []*core.Chunk, model string) error

	// Delete removes every chunk for a document, including any staged
	// leftovers from failed upserts. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, docID core.ID) error

	// Chunks returns the committed chunk set for a document in insertion
	// order. Returns an empty slice for unknown IDs.
	Chunks(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// Count returns the number of committed chunks for a document.
	Count(ctx context.Context, docID core.ID) (int, error)

	// DocumentIDs returns the IDs of all documents with committed chunks.
	DocumentIDs(ctx context.Context) ([]core.ID, error)

	// Search returns the k chunks most similar to the query vector,
	// highest score first. Ties are broken by chunk insertion order.
	// Only committed chunk sets are searched.
	Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]*core.ScoredChunk, error)

	// Model returns the embedding model identity recorded at the last
	// commit, or "" for an empty index.
	Model(ctx context.Context) (string, error)

	// Close releases index resources.
	Close() error
}
