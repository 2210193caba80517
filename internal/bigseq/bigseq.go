// Package bigseq provides an append-only growable sequence that either lives in
// memory or spills fixed-size pages of encoded elements to a temporary bbolt
// database, depending on how many elements the caller expects.
package bigseq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
)

const (
	// DefaultThreshold is the element count above which New picks paged storage.
	DefaultThreshold  = 1 << 20
	DefaultPageItems  = 1 << 16
	DefaultCachePages = 4
)

var (
	ErrOutOfRange = errors.New("bigseq: index out of range")
	ErrClosed     = errors.New("bigseq: sequence closed")
)

// Sequence is an append-only list of T. Implementations may evict elements
// from memory after they are appended; All is the cheap way to visit them.
type Sequence[T any] interface {
	Append(v T) error
	Get(i int) (T, error)
	Len() int
	// All yields elements in index order. Iteration stops early on a storage
	// failure, which Err then reports.
	All() iter.Seq2[int, T]
	Err() error
	Close() error
}

// Codec converts elements to and from the bytes stored in a page.
type Codec[T any] interface {
	// Append appends the encoding of v to dst.
	Append(dst []byte, v T) ([]byte, error)
	// Decode decodes one element from the front of src and reports how many
	// bytes it used.
	Decode(src []byte) (T, int, error)
}

// Config selects and tunes the storage behind New.
type Config struct {
	Threshold  int
	PageItems  int
	CachePages int
	// TempDir holds paged databases. Empty means os.TempDir().
	TempDir string
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.PageItems <= 0 {
		c.PageItems = DefaultPageItems
	}
	if c.CachePages <= 0 {
		c.CachePages = DefaultCachePages
	}
	return c
}

// New returns a sequence sized for n elements: paged storage when n exceeds
// the configured threshold, memory otherwise.
func New[T any](n int, codec Codec[T], cfg Config) (Sequence[T], error) {
	cfg = cfg.withDefaults()
	if n > cfg.Threshold {
		if codec == nil {
			return nil, errors.New("bigseq: paged storage needs a codec")
		}
		p, err := NewPaged(codec, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return NewMemory[T](n), nil
}

// Collect copies every element of s into a slice.
func Collect[T any](s Sequence[T]) ([]T, error) {
	out := make([]T, 0, s.Len())
	for _, v := range s.All() {
		out = append(out, v)
	}
	return out, s.Err()
}

// Uint64Codec stores uint64 elements as 8 little-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Append(dst []byte, v uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, v), nil
}

func (Uint64Codec) Decode(src []byte) (uint64, int, error) {
	if len(src) < 8 {
		return 0, 0, fmt.Errorf("bigseq: short uint64 encoding (%d bytes)", len(src))
	}
	return binary.LittleEndian.Uint64(src), 8, nil
}
