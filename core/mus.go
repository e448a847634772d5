package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-maintained MUS serializers for the persisted domain types.
// Field order is the wire format; append new fields at the end only.

var (
	// IDMUS serializes an ID.
	IDMUS = idMUS{}
	// DocumentMUS serializes a Document.
	DocumentMUS = documentMUS{}
	// ChunkMUS serializes a Chunk.
	ChunkMUS = chunkMUS{}
	// ChunkManifestMUS serializes a ChunkManifest.
	ChunkManifestMUS = chunkManifestMUS{}

	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
)

type idMUS struct{}

func (s idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (s idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (s idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// Timestamps are stored as Unix microseconds; the zero time encodes as 0.
func marshalTime(t time.Time, bs []byte) (n int) {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

type documentMUS struct{}

func (s documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(d.Id), bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += varint.Int.Marshal(int(d.Format), bs[n:])
	n += varint.Int.Marshal(int(d.Status), bs[n:])
	n += ord.String.Marshal(d.FailureReason, bs[n:])
	n += varint.Int.Marshal(int(d.Method), bs[n:])
	n += varint.Int64.Marshal(d.FileSize, bs[n:])
	n += varint.Int.Marshal(d.PageCount, bs[n:])
	n += varint.Int.Marshal(d.ChunkCount, bs[n:])
	n += ord.String.Marshal(d.SourcePath, bs[n:])
	n += ord.String.Marshal(d.ConvertedPath, bs[n:])
	n += ord.String.Marshal(d.TextPath, bs[n:])
	n += marshalTime(d.UploadedAt, bs[n:])
	n += marshalTime(d.StartedAt, bs[n:])
	n += marshalTime(d.CompletedAt, bs[n:])
	n += marshalTime(d.UpdatedAt, bs[n:])
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var (
		m int
		v uint64
		i int
	)
	v, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Id = ID(v)
	if d.Filename, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if i, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	d.Format = Format(i)
	n += m
	if i, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	d.Status = ProcessingStatus(i)
	n += m
	if d.FailureReason, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if i, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	d.Method = ExtractionMethod(i)
	n += m
	if d.FileSize, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.PageCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.ChunkCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.SourcePath, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.ConvertedPath, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.TextPath, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.UploadedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.StartedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.CompletedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	if d.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + m, err
	}
	n += m
	return d, n, nil
}

func (s documentMUS) Size(d Document) (size int) {
	size = varint.Uint64.Size(uint64(d.Id))
	size += ord.String.Size(d.Filename)
	size += varint.Int.Size(int(d.Format))
	size += varint.Int.Size(int(d.Status))
	size += ord.String.Size(d.FailureReason)
	size += varint.Int.Size(int(d.Method))
	size += varint.Int64.Size(d.FileSize)
	size += varint.Int.Size(d.PageCount)
	size += varint.Int.Size(d.ChunkCount)
	size += ord.String.Size(d.SourcePath)
	size += ord.String.Size(d.ConvertedPath)
	size += ord.String.Size(d.TextPath)
	size += sizeTime(d.UploadedAt)
	size += sizeTime(d.StartedAt)
	size += sizeTime(d.CompletedAt)
	size += sizeTime(d.UpdatedAt)
	return size
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(c.Id), bs)
	n += varint.Uint64.Marshal(uint64(c.DocumentId), bs[n:])
	n += varint.Int.Marshal(c.Seq, bs[n:])
	n += varint.Int.Marshal(c.Page, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += vectorMUS.Marshal(c.Vector, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var (
		m int
		v uint64
	)
	v, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Id = ID(v)
	if v, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	c.DocumentId = ID(v)
	n += m
	if c.Seq, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Page, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Vector, m, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	return c, n, nil
}

func (s chunkMUS) Size(c Chunk) (size int) {
	size = varint.Uint64.Size(uint64(c.Id))
	size += varint.Uint64.Size(uint64(c.DocumentId))
	size += varint.Int.Size(c.Seq)
	size += varint.Int.Size(c.Page)
	size += ord.String.Size(c.Text)
	size += vectorMUS.Size(c.Vector)
	return size
}

type chunkManifestMUS struct{}

func (s chunkManifestMUS) Marshal(m ChunkManifest, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(m.DocumentId), bs)
	n += varint.Uint64.Marshal(m.Epoch, bs[n:])
	n += varint.Int.Marshal(m.Chunks, bs[n:])
	n += ord.String.Marshal(m.Model, bs[n:])
	return n
}

func (s chunkManifestMUS) Unmarshal(bs []byte) (m ChunkManifest, n int, err error) {
	var (
		k int
		v uint64
	)
	v, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	m.DocumentId = ID(v)
	if m.Epoch, k, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return m, n + k, err
	}
	n += k
	if m.Chunks, k, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return m, n + k, err
	}
	n += k
	if m.Model, k, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return m, n + k, err
	}
	n += k
	return m, n, nil
}

func (s chunkManifestMUS) Size(m ChunkManifest) (size int) {
	size = varint.Uint64.Size(uint64(m.DocumentId))
	size += varint.Uint64.Size(m.Epoch)
	size += varint.Int.Size(m.Chunks)
	size += ord.String.Size(m.Model)
	return size
}
