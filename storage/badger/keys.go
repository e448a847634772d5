package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/amitakki/ocr-chatqa/core"
)

// Key prefixes for different data types
const (
	docRecordPrefix   = "docrec"
	docUploadPrefix   = "docup"
	docIDSeq          = "docseq"
	chunkPrefix       = "chk"
	manifestPrefix    = "chkman"
	indexModelKey     = "idxmodel"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", docRecordPrefix, id))
}

// makeDocUploadKey generates a composite key for the upload-time index.
// Format: prefix:timestamp:id
func makeDocUploadKey(uploadedAt time.Time, id core.ID) []byte {
	prefix := docUploadPrefix + ":"
	buf := make([]byte, len(prefix)+16) // 8 bytes timestamp + 8 bytes ID
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeManifestKey generates a key for a document's chunk manifest.
func makeManifestKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", manifestPrefix, id))
}

// makeChunkKey generates a composite key for one chunk.
// Format: prefix:docID:epoch:seq, fixed-width BigEndian so a prefix scan
// yields a document's chunks grouped by epoch in insertion order.
func makeChunkKey(docID core.ID, epoch uint64, seq int) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], epoch)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makeChunkDocPrefix generates the scan prefix covering every epoch of a
// document's chunks.
func makeChunkDocPrefix(docID core.ID) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeChunkEpochPrefix generates the scan prefix for one committed epoch.
func makeChunkEpochPrefix(docID core.ID, epoch uint64) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], epoch)
	return buf
}

// chunkKeyEpoch extracts the epoch from a chunk key.
// Returns false if the key is not a chunk key.
func chunkKeyEpoch(key []byte) (uint64, bool) {
	prefixLen := len(chunkPrefix) + 1
	if len(key) != prefixLen+24 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[prefixLen+8:]), true
}
