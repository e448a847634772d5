package ingestion

import "errors"

var (
	// ErrRegistryRequired is returned when a document registry is not provided.
	ErrRegistryRequired = errors.New("document registry required")

	// ErrClassifierRequired is returned when a classifier is not provided.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrRouterRequired is returned when an extraction router is not provided.
	ErrRouterRequired = errors.New("extraction router required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrIndexManagerRequired is returned when an index manager is not provided.
	ErrIndexManagerRequired = errors.New("index manager required")

	// ErrArtifactsRequired is returned when an artifact store is not provided.
	ErrArtifactsRequired = errors.New("artifact store required")

	// ErrIngestionInFlight is returned when an operation targets a document
	// whose ingestion has not reached a terminal state yet.
	ErrIngestionInFlight = errors.New("ingestion already in flight for document")
)
