package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

// DocumentRegistry implements storage.DocumentRegistry for BadgerDB.
type DocumentRegistry struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRegistry = (*DocumentRegistry)(nil)

// NewDocumentRegistry creates a new DocumentRegistry.
func NewDocumentRegistry(backend *Backend) (*DocumentRegistry, error) {
	idSeq, err := backend.GetSequence(docIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRegistry{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRegistry) Close() error {
	return r.idSeq.Release()
}

// Create adds a new document record, assigning an ID from the sequence.
func (r *DocumentRegistry) Create(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if doc.Id == 0 {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			doc.Id = core.ID(nextID)
		}

		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = time.Now().UTC()
		}
		doc.UpdatedAt = doc.UploadedAt

		key := makeDocumentKey(doc.Id)
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		uploadKey := makeDocUploadKey(doc.UploadedAt, doc.Id)
		if err := tx.Set(uploadKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return doc, err
}

// Get retrieves a document record by ID.
func (r *DocumentRegistry) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// List retrieves all document records ordered by upload time, newest first.
func (r *DocumentRegistry) List(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible upload-index key, then walk backwards.
		startKey := makeDocUploadKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC), core.ID(^uint64(0)))
		prefix := []byte(docUploadPrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var docID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			doc, err := readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)

	return results, err
}

// UpdateStatus moves a document to a new lifecycle status.
func (r *DocumentRegistry) UpdateStatus(ctx context.Context, id core.ID, status core.ProcessingStatus, reason string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := core.ValidateTransition(doc.Status, status); err != nil {
			return err
		}

		now := time.Now().UTC()
		doc.Status = status
		doc.UpdatedAt = now
		if status == core.StatusFailed {
			doc.FailureReason = reason
		}
		if doc.StartedAt.IsZero() && status > core.StatusQueued {
			doc.StartedAt = now
		}
		if status.Terminal() {
			doc.CompletedAt = now
		}

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		result = doc
		return tx.Commit()
	}, true)

	return result, err
}

// Update rewrites a document record, validating any status change.
func (r *DocumentRegistry) Update(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		old, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if old.Status != doc.Status {
			if err := core.ValidateTransition(old.Status, doc.Status); err != nil {
				return err
			}
		}

		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		// Update upload index if the timestamp changed
		if !old.UploadedAt.Equal(doc.UploadedAt) {
			if err := tx.Delete(makeDocUploadKey(old.UploadedAt, old.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeDocUploadKey(doc.UploadedAt, doc.Id), storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)

	return doc, err
}

// Delete removes a document record. Absent IDs are a no-op.
func (r *DocumentRegistry) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}

		if err := tx.Delete(makeDocUploadKey(doc.UploadedAt, doc.Id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document record from the transaction.
// Returns nil without error when the key is absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
