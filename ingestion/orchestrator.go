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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/amitakki/ocr-chatqa/chunk"
	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/extract"
	"github.com/amitakki/ocr-chatqa/index"
	"github.com/amitakki/ocr-chatqa/storage"
)

const defaultExtractTimeout = 10 * time.Minute

// Orchestrator drives each document through the ingestion state machine:
// queued, classifying, extracting, chunking, embedding, completed, with
// failed reachable from any non-terminal stage. It is the only mutator of
// document lifecycle state.
//
// Processing runs asynchronously on a worker pool. At most one ingestion is
// in flight per document ID; operations against an in-flight document are
// rejected rather than interleaved.
type Orchestrator struct {
	registry   storage.DocumentRegistry
	classifier *extract.Classifier
	router     *extract.Router
	chunker    *chunk.Chunker
	manager    *index.Manager
	artifacts  *extract.ArtifactStore

	pool           *ants.Pool
	extractTimeout time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	inflight map[core.ID]context.CancelFunc
	done     sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for concurrent document processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}

		if o.pool != nil {
			o.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithExtractTimeout bounds how long the extraction stage of one document
// may run. OCR on large scans dominates pipeline time, so the deadline is
// applied there.
func WithExtractTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d <= 0 {
			return fmt.Errorf("extract timeout must be positive, got %v", d)
		}
		o.extractTimeout = d
		return nil
	}
}

// NewOrchestrator creates an ingestion orchestrator.
func NewOrchestrator(
	registry storage.DocumentRegistry,
	classifier *extract.Classifier,
	router *extract.Router,
	chunker *chunk.Chunker,
	manager *index.Manager,
	artifacts *extract.ArtifactStore,
	opts ...Option,
) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if router == nil {
		return nil, ErrRouterRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if manager == nil {
		return nil, ErrIndexManagerRequired
	}
	if artifacts == nil {
		return nil, ErrArtifactsRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		registry:       registry,
		classifier:     classifier,
		router:         router,
		chunker:        chunker,
		manager:        manager,
		artifacts:      artifacts,
		pool:           pool,
		extractTimeout: defaultExtractTimeout,
		logger:         slog.Default(),
		inflight:       make(map[core.ID]context.CancelFunc),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Submit accepts an upload, records it as queued, stores the original
// artifact, and schedules asynchronous processing. The returned document
// carries the assigned ID; processing outcome is observable via Status.
func (o *Orchestrator) Submit(ctx context.Context, filename string, data []byte) (*core.Document, error) {
	format := core.FormatFromFilename(filename)

	doc := &core.Document{
		Filename: filename,
		Format:   format,
		Status:   core.StatusQueued,
		FileSize: int64(len(data)),
	}

	created, err := o.registry.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	ext := format.Ext()
	if ext == "" {
		ext = filepath.Ext(filename)
	}
	sourcePath, err := o.artifacts.SaveOriginal(created.Id, ext, data)
	if err != nil {
		// The record exists but has no stored bytes to process.
		o.fail(created.Id, fmt.Sprintf("failed to store upload: %v", err))
		return created, nil
	}

	created.SourcePath = sourcePath
	created, err = o.registry.Update(ctx, created)
	if err != nil {
		return nil, err
	}

	o.schedule(created.Id, data)
	return created, nil
}

// Reprocess re-ingests a document from its stored original under a fresh
// document ID, then removes the old record. Rejected while the prior attempt
// is still in flight.
func (o *Orchestrator) Reprocess(ctx context.Context, id core.ID) (*core.Document, error) {
	o.mu.Lock()
	_, running := o.inflight[id]
	o.mu.Unlock()
	if running {
		return nil, fmt.Errorf("%w: %d", ErrIngestionInFlight, id)
	}

	old, err := o.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(old.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored original: %w", err)
	}

	created, err := o.Submit(ctx, old.Filename, data)
	if err != nil {
		return nil, err
	}

	if err := o.Delete(ctx, id); err != nil {
		o.logger.Warn("failed to remove superseded document", "docID", id, "err", err)
	}
	return created, nil
}

// Status returns the lifecycle record of a document.
func (o *Orchestrator) Status(ctx context.Context, id core.ID) (*core.Document, error) {
	return o.registry.Get(ctx, id)
}

// List returns all document records, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]*core.Document, error) {
	return o.registry.List(ctx)
}

// Stats summarizes the document corpus.
type Stats struct {
	// Documents is the total number of registered documents.
	Documents int

	// ByStatus counts documents per lifecycle status.
	ByStatus map[core.ProcessingStatus]int

	// ByMethod counts documents per extraction method, once one is known.
	ByMethod map[core.ExtractionMethod]int

	// Chunks is the total number of chunks across completed documents.
	Chunks int
}

// Stats reports corpus-wide counts.
func (o *Orchestrator) Stats(ctx context.Context) (*Stats, error) {
	docs, err := o.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Documents: len(docs),
		ByStatus:  make(map[core.ProcessingStatus]int),
		ByMethod:  make(map[core.ExtractionMethod]int),
	}
	for _, doc := range docs {
		stats.ByStatus[doc.Status]++
		if doc.Method != core.MethodNone {
			stats.ByMethod[doc.Method]++
		}
		stats.Chunks += doc.ChunkCount
	}
	return stats, nil
}

// Delete removes a document: any in-flight processing is cancelled, then
// index entries, artifacts, and the registry record are removed in that
// order so a crash mid-delete never leaves indexed chunks without a record
// of where they came from. Deleting an unknown ID is a no-op.
func (o *Orchestrator) Delete(ctx context.Context, id core.ID) error {
	o.mu.Lock()
	if cancel, ok := o.inflight[id]; ok {
		cancel()
	}
	o.mu.Unlock()

	if err := o.manager.Delete(ctx, id); err != nil {
		return err
	}
	if err := o.artifacts.DeleteAll(id); err != nil {
		return err
	}
	return o.registry.Delete(ctx, id)
}

// Wait blocks until all scheduled processing has finished.
// Intended for shutdown and tests.
func (o *Orchestrator) Wait() {
	o.done.Wait()
}

// Release stops the worker pool. In-flight work is cancelled.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	o.mu.Lock()
	for _, cancel := range o.inflight {
		cancel()
	}
	o.mu.Unlock()

	o.done.Wait()
	if o.pool != nil {
		o.pool.Release()
	}
}

// schedule registers the document as in flight and hands processing to the
// pool. Errors during async processing are recorded on the document record,
// never returned to the submitter.
func (o *Orchestrator) schedule(id core.ID, data []byte) {
	cctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.inflight[id] = cancel
	o.mu.Unlock()
	o.done.Add(1)

	err := o.pool.Submit(func() {
		defer o.done.Done()
		defer func() {
			o.mu.Lock()
			delete(o.inflight, id)
			o.mu.Unlock()
			cancel()
		}()
		o.process(cctx, id, data)
	})
	if err != nil {
		o.done.Done()
		o.mu.Lock()
		delete(o.inflight, id)
		o.mu.Unlock()
		cancel()
		o.fail(id, fmt.Sprintf("failed to schedule processing: %v", err))
	}
}

// process walks one document through the pipeline stages.
func (o *Orchestrator) process(ctx context.Context, id core.ID, data []byte) {
	logger := o.logger.With("docID", id)

	if ctx.Err() != nil {
		o.fail(id, "ingestion cancelled")
		return
	}

	// Classify
	doc, err := o.registry.UpdateStatus(ctx, id, core.StatusClassifying, "")
	if err != nil {
		logger.Error("failed to enter classifying state", "err", err)
		return
	}

	class := o.classifier.Classify(ctx, data, doc.Format)
	if class == core.ClassificationUnsupported {
		o.fail(id, fmt.Sprintf("%v: %s", core.ErrUnsupportedFormat, doc.Format))
		return
	}
	logger.Info("classified document", "classification", class)

	// Extract
	if _, err := o.registry.UpdateStatus(ctx, id, core.StatusExtracting, ""); err != nil {
		logger.Error("failed to enter extracting state", "err", err)
		return
	}

	ectx, cancel := context.WithTimeout(ctx, o.extractTimeout)
	result, err := o.router.Extract(ectx, doc, data, class)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: extraction exceeded %v", core.ErrTimeout, o.extractTimeout)
		}
		o.fail(id, err.Error())
		return
	}
	logger.Info("extracted document", "method", result.Method, "pages", len(result.Pages))

	doc.Method = result.Method
	doc.PageCount = len(result.Pages)
	doc.ConvertedPath = result.ConvertedPath
	doc.TextPath = result.TextPath
	doc.Status = core.StatusExtracting
	if doc, err = o.registry.Update(ctx, doc); err != nil {
		logger.Error("failed to record extraction result", "err", err)
		return
	}

	// Chunk
	if _, err := o.registry.UpdateStatus(ctx, id, core.StatusChunking, ""); err != nil {
		logger.Error("failed to enter chunking state", "err", err)
		return
	}

	chunks, err := o.chunker.Split(id, result.Pages)
	if err != nil {
		o.fail(id, fmt.Sprintf("chunking failed: %v", err))
		return
	}
	if len(chunks) == 0 {
		o.fail(id, fmt.Sprintf("%v: no chunks produced", core.ErrExtractionFailed))
		return
	}

	// Embed and index
	if ctx.Err() != nil {
		o.fail(id, "ingestion cancelled")
		return
	}
	if _, err := o.registry.UpdateStatus(ctx, id, core.StatusEmbedding, ""); err != nil {
		logger.Error("failed to enter embedding state", "err", err)
		return
	}

	if err := o.manager.Upsert(ctx, id, chunks); err != nil {
		o.fail(id, err.Error())
		return
	}

	doc.ChunkCount = len(chunks)
	doc.Status = core.StatusEmbedding
	if doc, err = o.registry.Update(ctx, doc); err != nil {
		logger.Error("failed to record chunk count", "err", err)
		return
	}

	if _, err := o.registry.UpdateStatus(ctx, id, core.StatusCompleted, ""); err != nil {
		logger.Error("failed to enter completed state", "err", err)
		return
	}
	logger.Info("document ingestion completed", "chunks", len(chunks))
}

// fail records a terminal failure and removes any chunks committed for the
// document so the index never holds entries for a failed ingestion.
func (o *Orchestrator) fail(id core.ID, reason string) {
	// Cleanup uses a fresh context: the failure may be a cancellation of
	// ctx itself.
	cleanupCtx := context.Background()

	if err := o.manager.Delete(cleanupCtx, id); err != nil {
		o.logger.Error("failed to clean up index after failure", "docID", id, "err", err)
	}

	if _, err := o.registry.UpdateStatus(cleanupCtx, id, core.StatusFailed, reason); err != nil {
		// The record may already be gone if failure came from Delete.
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Error("failed to record failure", "docID", id, "reason", reason, "err", err)
		}
		return
	}
	o.logger.Warn("document ingestion failed", "docID", id, "reason", reason)
}
