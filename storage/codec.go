package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/knownet/core"
)

// EmbeddingMUS serializes embedding vectors as a varint length followed by
// fixed-width float32 values.
var EmbeddingMUS = embeddingMUS{}

type embeddingMUS struct{}

func (s embeddingMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s embeddingMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > (len(bs)-n)/4 {
		err = ErrTruncatedData
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s embeddingMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

// TripleMUS serializes a single extracted triple.
var TripleMUS = tripleMUS{}

type tripleMUS struct{}

func (s tripleMUS) Marshal(v core.Triple, bs []byte) (n int) {
	n = ord.String.Marshal(v.Subject, bs)
	n += ord.String.Marshal(v.Predicate, bs[n:])
	n += ord.String.Marshal(v.Object, bs[n:])
	return
}

func (s tripleMUS) Unmarshal(bs []byte) (v core.Triple, n int, err error) {
	v.Subject, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Predicate, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Object, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s tripleMUS) Size(v core.Triple) (size int) {
	size = ord.String.Size(v.Subject)
	size += ord.String.Size(v.Predicate)
	return size + ord.String.Size(v.Object)
}

// TriplesMUS serializes a list of triples.
var TriplesMUS = triplesMUS{}

type triplesMUS struct{}

func (s triplesMUS) Marshal(v []core.Triple, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, t := range v {
		n += TripleMUS.Marshal(t, bs[n:])
	}
	return
}

func (s triplesMUS) Unmarshal(bs []byte) (v []core.Triple, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	// Each triple carries three length prefixes of at least one byte.
	if length < 0 || length > (len(bs)-n)/3 {
		err = ErrTruncatedData
		return
	}
	v = make([]core.Triple, length)
	var n1 int
	for i := range v {
		v[i], n1, err = TripleMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s triplesMUS) Size(v []core.Triple) (size int) {
	size = varint.Int.Size(len(v))
	for _, t := range v {
		size += TripleMUS.Size(t)
	}
	return
}

// MarshalEmbedding serializes an embedding vector to bytes.
func MarshalEmbedding(vec []float32) []byte {
	buf := make([]byte, EmbeddingMUS.Size(vec))
	EmbeddingMUS.Marshal(vec, buf)
	return buf
}

// UnmarshalEmbedding deserializes an embedding vector from bytes.
func UnmarshalEmbedding(data []byte) (vec []float32, err error) {
	defer recoverCorrupt(&err)
	vec, _, err = EmbeddingMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return vec, nil
}

// MarshalTriples serializes a triple list to bytes.
func MarshalTriples(triples []core.Triple) []byte {
	buf := make([]byte, TriplesMUS.Size(triples))
	TriplesMUS.Marshal(triples, buf)
	return buf
}

// UnmarshalTriples deserializes a triple list from bytes.
func UnmarshalTriples(data []byte) (triples []core.Triple, err error) {
	defer recoverCorrupt(&err)
	triples, _, err = TriplesMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return triples, nil
}

// recoverCorrupt turns a decoder panic on malformed input into
// ErrSerializationFailed. Length prefixes near math.MaxInt can overflow
// bounds checks inside the string decoder.
func recoverCorrupt(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: corrupt record: %v", ErrSerializationFailed, r)
	}
}
