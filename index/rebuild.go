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
	"io"
	"time"
)

// Rebuilder re-embeds every indexed document with the manager's configured
// model. Used after an embedding model change, when stored vectors are no
// longer comparable to fresh query vectors.
type Rebuilder struct {
	manager        *Manager
	progress       io.Writer
	reportInterval int
}

// NewRebuilder creates a rebuilder reporting progress to the given writer
// (typically os.Stderr).
func NewRebuilder(manager *Manager, progress io.Writer) *Rebuilder {
	return &Rebuilder{
		manager:        manager,
		progress:       progress,
		reportInterval: 1,
	}
}

// Run re-embeds all documents, one atomic upsert per document. Documents
// already committed stay queryable under their old vectors until their own
// rebuild commits; a failure mid-run leaves every untouched document intact.
func (r *Rebuilder) Run(ctx context.Context) error {
	ids, err := r.manager.index.DocumentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed documents: %w", err)
	}

	if len(ids) == 0 {
		fmt.Fprintf(r.progress, "No documents in index (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting rebuild of %d documents with model %s\n",
		len(ids), r.manager.Model())

	tracker := NewProgressTracker(r.progress, len(ids), r.reportInterval)
	tracker.Start()

	for i, docID := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunks, err := r.manager.index.Chunks(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to read chunks for document %d: %w", docID, err)
		}

		// Drop stale vectors; Upsert re-embeds from text.
		for _, chunk := range chunks {
			chunk.Vector = nil
		}

		if err := r.manager.Upsert(ctx, docID, chunks); err != nil {
			return fmt.Errorf("failed to rebuild document %d: %w", docID, err)
		}

		tracker.Update(i + 1)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rebuild complete. Processed %d documents in %v (%.1f documents/sec)\n",
		len(ids), elapsed.Round(time.Second), float64(len(ids))/elapsed.Seconds())

	return nil
}
