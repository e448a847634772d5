package badger

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

// upsertBatchSize bounds the number of chunk writes per transaction to stay
// under Badger's transaction size limit.
const upsertBatchSize = 64

// ChunkIndex implements storage.ChunkIndex for BadgerDB.
//
// Chunks are stored under (docID, epoch, seq) keys. Each upsert stages the
// full chunk set under a fresh epoch, then commits a per-document manifest
// pointing at that epoch in a final transaction. Searches resolve chunks
// through manifests only, so a document's chunks become visible all at once
// or not at all.
type ChunkIndex struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.ChunkIndex = (*ChunkIndex)(nil)

// NewChunkIndex creates a new ChunkIndex.
func NewChunkIndex(backend *Backend) *ChunkIndex {
	return &ChunkIndex{
		backend: backend,
		logger:  slog.Default().With("component", "chunk-index"),
	}
}

// Close is a no-op; the shared backend is closed by its owner.
func (x *ChunkIndex) Close() error {
	return nil
}

// Upsert atomically replaces the full chunk set for a document.
func (x *ChunkIndex) Upsert(ctx context.Context, docID core.ID, chunks []*core.Chunk, model string) error {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}

	committed, err := x.manifest(docID)
	if err != nil {
		return err
	}

	var oldEpoch uint64
	if committed != nil {
		oldEpoch = committed.Epoch
	}
	newEpoch := oldEpoch + 1

	// Drop staged leftovers from any earlier failed attempt.
	if err := x.deleteChunkEpochs(docID, &oldEpoch); err != nil {
		return err
	}

	// Stage the new chunk set. Staged keys are invisible to Search until
	// the manifest below commits.
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		err := x.backend.WithTx(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				key := makeChunkKey(docID, newEpoch, chunks[i].Seq)
				if err := tx.Set(key, storage.MarshalChunk(chunks[i])); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			x.rollbackEpoch(docID, newEpoch)
			return err
		}
	}

	// Commit: flip the manifest to the new epoch.
	manifest := &core.ChunkManifest{
		DocumentId: docID,
		Epoch:      newEpoch,
		Chunks:     len(chunks),
		Model:      model,
	}
	err = x.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeManifestKey(docID), storage.MarshalChunkManifest(manifest)); err != nil {
			return err
		}
		if err := tx.Set([]byte(indexModelKey), []byte(model)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		x.rollbackEpoch(docID, newEpoch)
		return err
	}

	// The old epoch is no longer reachable; clean it up.
	if err := x.deleteChunkEpochs(docID, &newEpoch); err != nil {
		x.logger.Warn("failed to clean up superseded chunk epoch", "docID", docID, "err", err)
	}

	return nil
}

// Delete removes every chunk for a document, committed or staged.
// Deleting an absent ID is a no-op.
func (x *ChunkIndex) Delete(ctx context.Context, docID core.ID) error {
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeManifestKey(docID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	return x.deleteChunkEpochs(docID, nil)
}

// Chunks returns the committed chunk set for a document in insertion order.
func (x *ChunkIndex) Chunks(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		manifest, err := readManifest(tx, docID)
		if err != nil || manifest == nil {
			return err
		}
		results, err = readEpochChunks(tx, docID, manifest.Epoch)
		return err
	}, false)
	return results, err
}

// Count returns the number of committed chunks for a document.
func (x *ChunkIndex) Count(ctx context.Context, docID core.ID) (int, error) {
	var count int
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		manifest, err := readManifest(tx, docID)
		if err != nil || manifest == nil {
			return err
		}
		count = manifest.Chunks
		return nil
	}, false)
	return count, err
}

// DocumentIDs returns the IDs of all documents with committed chunks.
func (x *ChunkIndex) DocumentIDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(manifestPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var manifest *core.ChunkManifest
			err := iter.Item().Value(func(val []byte) error {
				var err error
				manifest, err = storage.UnmarshalChunkManifest(val)
				return err
			})
			if err != nil {
				return err
			}
			ids = append(ids, manifest.DocumentId)
		}
		return nil
	}, false)
	return ids, err
}

// Search returns the k chunks most similar to the query vector.
func (x *ChunkIndex) Search(ctx context.Context, vector []float32, k int, filter *storage.SearchFilter) ([]*core.ScoredChunk, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.ScoredChunk

	// One read transaction for manifests and chunks: the snapshot never
	// straddles an in-flight commit.
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		manifests, err := collectManifests(tx, filter)
		if err != nil {
			return err
		}

		for _, manifest := range manifests {
			chunks, err := readEpochChunks(tx, manifest.DocumentId, manifest.Epoch)
			if err != nil {
				return err
			}
			for _, chunk := range chunks {
				if len(chunk.Vector) == 0 {
					continue
				}
				results = append(results, &core.ScoredChunk{
					Chunk: chunk,
					Score: dotProduct(vector, chunk.Vector),
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Stable sort: ties keep chunk insertion order.
	slices.SortStableFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Model returns the embedding model identity recorded at the last commit.
func (x *ChunkIndex) Model(ctx context.Context) (string, error) {
	var model string
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(indexModelKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			model = string(val)
			return nil
		})
	}, false)
	return model, err
}

// manifest reads the committed manifest for a document outside any caller
// transaction. Returns nil when the document has no committed chunks.
func (x *ChunkIndex) manifest(docID core.ID) (*core.ChunkManifest, error) {
	var manifest *core.ChunkManifest
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		manifest, err = readManifest(tx, docID)
		return err
	}, false)
	return manifest, err
}

// deleteChunkEpochs removes chunk keys for a document. When keep is non-nil,
// chunks of that epoch are preserved. Deletes run in bounded batches.
func (x *ChunkIndex) deleteChunkEpochs(docID core.ID, keep *uint64) error {
	var keys [][]byte
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(docID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if epoch, ok := chunkKeyEpoch(key); ok && keep != nil && epoch == *keep {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(keys))
		err := x.backend.WithTx(func(tx *badger.Txn) error {
			for _, key := range keys[start:end] {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return err
		}
	}
	return nil
}

// rollbackEpoch removes staged chunks after a failed upsert, best effort.
func (x *ChunkIndex) rollbackEpoch(docID core.ID, epoch uint64) {
	var keys [][]byte
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkEpochPrefix(docID, epoch)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		x.logger.Warn("failed to scan staged chunks for rollback", "docID", docID, "err", err)
		return
	}

	for start := 0; start < len(keys); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(keys))
		err := x.backend.WithTx(func(tx *badger.Txn) error {
			for _, key := range keys[start:end] {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			x.logger.Warn("failed to roll back staged chunks", "docID", docID, "err", err)
			return
		}
	}
}

// readManifest reads a document's manifest within a transaction.
// Returns nil without error when absent.
func readManifest(tx *badger.Txn, docID core.ID) (*core.ChunkManifest, error) {
	item, err := tx.Get(makeManifestKey(docID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var manifest *core.ChunkManifest
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		manifest, unmarshalErr = storage.UnmarshalChunkManifest(val)
		return unmarshalErr
	})
	return manifest, err
}

// collectManifests gathers the manifests a search must consult.
func collectManifests(tx *badger.Txn, filter *storage.SearchFilter) ([]*core.ChunkManifest, error) {
	if filter != nil && filter.DocumentID != 0 {
		manifest, err := readManifest(tx, filter.DocumentID)
		if err != nil || manifest == nil {
			return nil, err
		}
		return []*core.ChunkManifest{manifest}, nil
	}

	var manifests []*core.ChunkManifest
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(manifestPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var manifest *core.ChunkManifest
		err := iter.Item().Value(func(val []byte) error {
			var err error
			manifest, err = storage.UnmarshalChunkManifest(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, manifest)
	}
	return manifests, nil
}

// readEpochChunks reads one epoch's chunks in insertion order.
func readEpochChunks(tx *badger.Txn, docID core.ID, epoch uint64) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkEpochPrefix(docID, epoch)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.Chunk
		err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
