package core

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Document IDs come from database sequences; chunk IDs are content-based hashes.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Format identifies the declared file format of an uploaded document,
// derived from its filename extension.
type Format int

const (
	// FormatUnknown is any extension without an extraction path.
	FormatUnknown Format = iota
	// FormatPDF is a PDF document, text-native or scanned.
	FormatPDF
	// FormatDOCX is a Word document.
	FormatDOCX
	// FormatHTML is an HTML document.
	FormatHTML
)

// FormatFromFilename derives the declared format from a filename extension.
// Dotfiles like ".pdf" carry no base name and are treated as extensionless.
func FormatFromFilename(name string) Format {
	ext := filepath.Ext(name)
	if ext == filepath.Base(name) {
		return FormatUnknown
	}
	switch strings.ToLower(ext) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// Ext returns the canonical file extension for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatPDF:
		return ".pdf"
	case FormatDOCX:
		return ".docx"
	case FormatHTML:
		return ".html"
	default:
		return ""
	}
}

// Classification is the decision of which extraction strategy a document requires.
type Classification int

const (
	// ClassificationNativeText means the document carries extractable text directly.
	ClassificationNativeText Classification = iota + 1
	// ClassificationScanned means the document is image-based and needs OCR.
	ClassificationScanned
	// ClassificationUnsupported means no extraction path exists for the format.
	ClassificationUnsupported
)

func (c Classification) String() string {
	switch c {
	case ClassificationNativeText:
		return "native-text"
	case ClassificationScanned:
		return "scanned"
	case ClassificationUnsupported:
		return "unsupported"
	default:
		return "invalid"
	}
}

// ExtractionMethod records which extraction strategy produced a document's text.
type ExtractionMethod int

const (
	// MethodNone means no extraction has run yet.
	MethodNone ExtractionMethod = iota
	// MethodDirect is a direct pull of the PDF text layer.
	MethodDirect
	// MethodOCR is rasterization plus OCR recognition per page.
	MethodOCR
	// MethodStructured is a structural walk of DOCX paragraphs or HTML text nodes.
	MethodStructured
)

func (m ExtractionMethod) String() string {
	switch m {
	case MethodDirect:
		return "direct"
	case MethodOCR:
		return "ocr"
	case MethodStructured:
		return "structured"
	default:
		return "none"
	}
}

// ProcessingStatus is the lifecycle state of a document's ingestion.
// Transitions are strictly forward; any non-terminal state may fail.
type ProcessingStatus int

const (
	// StatusQueued means the upload was accepted and processing has not started.
	StatusQueued ProcessingStatus = iota + 1
	// StatusClassifying means format classification is running.
	StatusClassifying
	// StatusExtracting means text extraction is running.
	StatusExtracting
	// StatusChunking means the extracted text is being split into chunks.
	StatusChunking
	// StatusEmbedding means chunk embeddings are being computed and indexed.
	StatusEmbedding
	// StatusCompleted is the terminal success state.
	StatusCompleted
	// StatusFailed is the terminal failure state; FailureReason carries the cause.
	StatusFailed
)

func (s ProcessingStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusClassifying:
		return "classifying"
	case StatusExtracting:
		return "extracting"
	case StatusChunking:
		return "chunking"
	case StatusEmbedding:
		return "embedding"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal reports whether the status is a final state.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a move from s to next is legal.
// Statuses only move forward through the pipeline; StatusFailed is
// reachable from any non-terminal state.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next > s && next <= StatusCompleted
}

// Document is the durable record of one uploaded document's lifecycle.
// It is owned by the document registry; the chunk index references it by ID only.
type Document struct {
	Id            ID
	Filename      string
	Format        Format
	Status        ProcessingStatus
	FailureReason string           // populated when Status is StatusFailed
	Method        ExtractionMethod // extraction method that produced the text
	FileSize      int64
	PageCount     int
	ChunkCount    int

	// Derived artifact paths, deterministic per document so that
	// delete can locate them without a separate index.
	SourcePath    string // stored copy of the original upload
	ConvertedPath string // OCR-overlaid searchable copy (scanned path only)
	TextPath      string // extracted-text rendition (scanned path only)

	UploadedAt  time.Time
	StartedAt   time.Time // when processing left the queue
	CompletedAt time.Time // when a terminal state was reached
	UpdatedAt   time.Time
}

// Chunk is a bounded text span with positional metadata and an embedding,
// the unit of retrieval. Chunks exist only for completed documents and are
// deleted en masse with their document.
type Chunk struct {
	Id         ID
	DocumentId ID
	Seq        int // insertion order within the document, used for stable ranking ties
	Page       int // originating page (PDF) or section index, for citations
	Text       string
	Vector     []float32
}

// ChunkManifest records which chunk epoch of a document is committed and
// visible to queries. Upserts stage chunks under a fresh epoch and flip the
// manifest last, so a document's chunks appear all at once or not at all.
type ChunkManifest struct {
	DocumentId ID
	Epoch      uint64
	Chunks     int
	Model      string // embedding model identity the vectors were computed with
}

// ScoredChunk is a retrieval result: a chunk with its similarity score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// PageText is the normalized output unit of extraction: plain text for one
// page (PDF) or section (DOCX/HTML) of a document.
type PageText struct {
	Page int
	Text string
}
