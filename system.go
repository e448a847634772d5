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


package ocrchatqa

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/amitakki/ocr-chatqa/ai"
	"github.com/amitakki/ocr-chatqa/ai/openai"
	"github.com/amitakki/ocr-chatqa/chunk"
	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/extract"
	"github.com/amitakki/ocr-chatqa/extract/ocr"
	"github.com/amitakki/ocr-chatqa/index"
	"github.com/amitakki/ocr-chatqa/ingestion"
	"github.com/amitakki/ocr-chatqa/storage"
	"github.com/amitakki/ocr-chatqa/storage/badger"
)

// System wires the full ingestion and retrieval pipeline: durable registry
// and chunk index on badger, extraction routing with OCR, chunking,
// embedding, and async orchestration.
type System struct {
	backend      *badger.Backend
	registry     storage.DocumentRegistry
	chunkIndex   storage.ChunkIndex
	provider     ai.Provider
	manager      *index.Manager
	orchestrator *ingestion.Orchestrator
	logger       *slog.Logger
}

// SystemOption configures a System before wiring.
type SystemOption func(*systemOptions)

type systemOptions struct {
	provider   ai.Provider
	engine     ocr.Engine
	rasterizer ocr.Rasterizer
	inMemory   bool
}

// WithProvider substitutes the embedding provider. Used by tests with the
// mock provider.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithEngine substitutes the OCR engine.
func WithEngine(engine ocr.Engine) SystemOption {
	return func(o *systemOptions) {
		o.engine = engine
	}
}

// WithRasterizer substitutes the page rasterizer.
func WithRasterizer(rasterizer ocr.Rasterizer) SystemOption {
	return func(o *systemOptions) {
		o.rasterizer = rasterizer
	}
}

// WithInMemoryStore opens the badger backend in memory, ignoring DataDir.
func WithInMemoryStore() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// NewSystem wires a System from config.
func NewSystem(cfg *Config, opts ...SystemOption) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &systemOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dataDir := cfg.DataDir
	if options.inMemory {
		dataDir = ""
	}
	backend, err := badger.OpenBackend(dataDir, options.inMemory)
	if err != nil {
		return nil, err
	}

	registry, err := badger.NewDocumentRegistry(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	chunkIndex := badger.NewChunkIndex(backend)

	provider := options.provider
	if provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithBatchSize(cfg.Embedding.BatchSize),
		)
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			registry.Close()
			backend.Close()
			return nil, err
		}
	}

	manager := index.NewManager(chunkIndex, provider)

	artifacts, err := extract.NewArtifactStore(cfg.ArtifactDir)
	if err != nil {
		provider.Close()
		registry.Close()
		backend.Close()
		return nil, err
	}

	engine := options.engine
	if engine == nil {
		engine = newEngine(cfg)
	}
	rasterizer := options.rasterizer
	if rasterizer == nil {
		rasterizer = ocr.NewCommandRasterizer(cfg.OCR.Rasterizer, os.TempDir())
	}

	router, err := extract.NewRouter(engine, rasterizer, artifacts,
		extract.WithDPI(cfg.OCR.DPI))
	if err != nil {
		provider.Close()
		registry.Close()
		backend.Close()
		return nil, err
	}

	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		provider.Close()
		registry.Close()
		backend.Close()
		return nil, err
	}

	orchOpts := []ingestion.Option{
		ingestion.WithExtractTimeout(cfg.ExtractTimeout()),
	}
	if cfg.Workers > 0 {
		orchOpts = append(orchOpts, ingestion.WithPoolSize(cfg.Workers))
	}
	orchestrator, err := ingestion.NewOrchestrator(
		registry,
		extract.NewClassifier(),
		router,
		chunker,
		manager,
		artifacts,
		orchOpts...,
	)
	if err != nil {
		provider.Close()
		registry.Close()
		backend.Close()
		return nil, err
	}

	return &System{
		backend:      backend,
		registry:     registry,
		chunkIndex:   chunkIndex,
		provider:     provider,
		manager:      manager,
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}, nil
}

func newEngine(cfg *Config) ocr.Engine {
	if cfg.OCR.Engine == OCREngineRemote {
		return ocr.NewRemoteEngine(cfg.OCR.Endpoint, os.Getenv(cfg.OCR.APIKeyEnv))
	}
	return ocr.NewTesseractEngine(cfg.OCR.Binary, cfg.OCR.Language)
}

// Submit accepts an uploaded document and queues it for processing.
func (s *System) Submit(ctx context.Context, filename string, data []byte) (*core.Document, error) {
	return s.orchestrator.Submit(ctx, filename, data)
}

// Status returns the lifecycle record for a document.
func (s *System) Status(ctx context.Context, id core.ID) (*core.Document, error) {
	return s.orchestrator.Status(ctx, id)
}

// List returns all documents, newest upload first.
func (s *System) List(ctx context.Context) ([]*core.Document, error) {
	return s.orchestrator.List(ctx)
}

// Stats summarizes documents by status and total indexed chunks.
func (s *System) Stats(ctx context.Context) (*ingestion.Stats, error) {
	return s.orchestrator.Stats(ctx)
}

// Delete removes a document's record, indexed chunks, and artifacts,
// cancelling any in-flight processing.
func (s *System) Delete(ctx context.Context, id core.ID) error {
	return s.orchestrator.Delete(ctx, id)
}

// Reprocess re-ingests a document from its stored original.
func (s *System) Reprocess(ctx context.Context, id core.ID) (*core.Document, error) {
	return s.orchestrator.Reprocess(ctx, id)
}

// Query embeds text and returns the k most similar chunks. filter may be
// nil to search the whole index.
func (s *System) Query(ctx context.Context, text string, k int, filter *storage.SearchFilter) ([]*core.ScoredChunk, error) {
	return s.manager.Query(ctx, text, k, filter)
}

// NeedsRebuild reports whether the index was built with a different
// embedding model than the one configured.
func (s *System) NeedsRebuild(ctx context.Context) (bool, error) {
	return s.manager.NeedsRebuild(ctx)
}

// Rebuild re-embeds every indexed chunk with the configured model,
// reporting progress to w.
func (s *System) Rebuild(ctx context.Context, w io.Writer) error {
	return index.NewRebuilder(s.manager, w).Run(ctx)
}

// Wait blocks until all queued ingestions settle.
func (s *System) Wait() {
	s.orchestrator.Wait()
}

// Close drains the orchestrator and releases every resource.
func (s *System) Close() error {
	s.orchestrator.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing embedding provider", "err", err)
	}
	if err := s.chunkIndex.Close(); err != nil {
		s.logger.Error("error closing chunk index", "err", err)
		return err
	}
	if err := s.registry.Close(); err != nil {
		s.logger.Error("error closing document registry", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
