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


package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amitakki/ocr-chatqa/ai"
	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 1 * time.Second
)

// Manager owns the vector index write path: it embeds chunk text, normalizes
// the vectors, and commits them atomically per document. It also serves
// similarity queries.
//
// A per-document mutex serializes Upsert and Delete for the same document so
// the index never sees interleaved writes to one chunk set. Writes to
// different documents proceed in parallel.
type Manager struct {
	index      storage.ChunkIndex
	embedder   ai.Embedder
	model      string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[core.ID]*sync.Mutex
}

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithMaxRetries sets how many times embedding calls are attempted.
func WithMaxRetries(n int) Option {
	return func(m *Manager) {
		m.maxRetries = n
	}
}

// WithRetryDelay sets the base delay for embedding retry backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// NewManager creates an index manager embedding with the provider's model.
func NewManager(chunkIndex storage.ChunkIndex, provider ai.Provider, opts ...Option) *Manager {
	m := &Manager{
		index:      chunkIndex,
		embedder:   provider.Embedder(),
		model:      provider.EmbeddingModel(),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     slog.Default().With("component", "index-manager"),
		locks:      make(map[core.ID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lockFor returns the mutex serializing writes for one document.
func (m *Manager) lockFor(docID core.ID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[docID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[docID] = lock
	}
	return lock
}

// Upsert embeds the chunks and commits them as the document's full chunk
// set. On failure nothing is committed: either the previously indexed set
// stays visible or, for a first indexing, the document stays absent.
func (m *Manager) Upsert(ctx context.Context, docID core.ID, chunks []*core.Chunk) error {
	lock := m.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			vectors, err = m.embedder.EmbedTexts(ctx, texts)
			return err
		}, m.maxRetries, m.retryDelay)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrEmbeddingFailed, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("%w: %w: expected %d, got %d",
				core.ErrEmbeddingFailed, ErrEmbeddingCountMismatch, len(chunks), len(vectors))
		}

		// Normalized vectors make dot product equivalent to cosine
		// similarity at query time.
		for i := range chunks {
			chunks[i].Vector = NormalizeVector(vectors[i])
		}
	}

	if err := m.index.Upsert(ctx, docID, chunks, m.model); err != nil {
		return fmt.Errorf("%w: %v", core.ErrIndexWriteFailed, err)
	}

	m.logger.Debug("indexed document chunks", "docID", docID, "chunks", len(chunks), "model", m.model)
	return nil
}

// Query embeds the query text and returns the k most similar chunks.
func (m *Manager) Query(ctx context.Context, text string, k int, filter *storage.SearchFilter) ([]*core.ScoredChunk, error) {
	vector, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbeddingFailed, err)
	}

	return m.index.Search(ctx, NormalizeVector(vector), k, filter)
}

// Delete removes a document's chunks from the index.
// Deleting an absent document is a no-op.
func (m *Manager) Delete(ctx context.Context, docID core.ID) error {
	lock := m.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.index.Delete(ctx, docID); err != nil {
		return fmt.Errorf("%w: %v", core.ErrIndexWriteFailed, err)
	}
	return nil
}

// Count returns the number of indexed chunks for a document.
func (m *Manager) Count(ctx context.Context, docID core.ID) (int, error) {
	return m.index.Count(ctx, docID)
}

// Model returns the embedding model the manager is configured with.
func (m *Manager) Model() string {
	return m.model
}

// NeedsRebuild reports whether the index was committed under a different
// embedding model than the manager is configured with. Vectors from
// different models are not comparable, so a mismatch calls for a rebuild.
func (m *Manager) NeedsRebuild(ctx context.Context) (bool, error) {
	stored, err := m.index.Model(ctx)
	if err != nil {
		return false, err
	}
	return stored != "" && stored != m.model, nil
}
