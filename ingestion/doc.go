// Package ingestion provides pipeline orchestration for document processing.
//
// The Orchestrator type drives each uploaded document through its lifecycle:
//   - recording the upload and storing the original artifact
//   - classifying the document as text-native or scanned
//   - extracting text through the matching strategy
//   - chunking and embedding the text
//   - committing the chunk set to the vector index atomically
//
// Processing is performed asynchronously on a worker pool; submission
// returns immediately and the outcome is observable through the document's
// status. A failed stage records its cause on the document and removes any
// chunks the attempt committed, so the index only ever holds chunks for
// completed documents.
package ingestion
