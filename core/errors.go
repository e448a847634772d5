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


package core

import "errors"

// Pipeline failure taxonomy. Every terminal ingestion failure is recorded
// against one of these so callers can distinguish causes via the registry.
var (
	// ErrUnsupportedFormat indicates a document format with no extraction path.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed indicates text extraction failed after any fallback.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmbeddingFailed indicates embedding computation failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrIndexWriteFailed indicates the vector index rejected a write.
	ErrIndexWriteFailed = errors.New("index write failed")

	// ErrTimeout indicates a pipeline stage exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyChunkText indicates the chunk Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrInvalidStatus indicates an invalid ProcessingStatus value.
	ErrInvalidStatus = errors.New("invalid processing status")

	// ErrStatusRegression indicates a backward lifecycle transition.
	ErrStatusRegression = errors.New("processing status cannot move backward")
)
