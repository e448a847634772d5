// Package index owns the vector index write and query paths.
//
// Manager embeds chunk text through an ai.Embedder, normalizes the vectors
// to unit length, and commits each document's chunk set atomically through
// storage.ChunkIndex. Queries embed the request text the same way, so dot
// product scoring behaves as cosine similarity.
//
// Rebuilder re-embeds every indexed document after an embedding model
// change, with progress reporting and the same per-document atomicity as
// regular upserts.
package index
