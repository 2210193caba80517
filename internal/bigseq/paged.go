package bigseq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var pagesBucket = []byte("pages")

// Paged is a Sequence that keeps only the page being filled in memory. Full
// pages are encoded with the codec and stored in a private bbolt database
// under a big-endian page number; recently decoded pages are kept in an LRU.
type Paged[T any] struct {
	codec     Codec[T]
	pageItems int

	db   *bolt.DB
	path string

	cache *lru.Cache
	tail  []T
	pages int
	n     int
	buf   []byte

	err    error
	closed bool
}

// NewPaged creates the backing database in cfg.TempDir.
func NewPaged[T any](codec Codec[T], cfg Config) (*Paged[T], error) {
	cfg = cfg.withDefaults()
	dir := cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "bigseq-"+uuid.NewString()+".db")

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		NoSync:         true,
		NoGrowSync:     true,
		NoFreelistSync: true,
	})
	if err != nil {
		return nil, fmt.Errorf("bigseq: open page store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("bigseq: init page store: %w", err)
	}

	return &Paged[T]{
		codec:     codec,
		pageItems: cfg.PageItems,
		db:        db,
		path:      path,
		cache:     lru.New(cfg.CachePages),
		tail:      make([]T, 0, cfg.PageItems),
	}, nil
}

func (p *Paged[T]) Append(v T) error {
	if p.closed {
		return ErrClosed
	}
	if p.err != nil {
		return p.err
	}
	p.tail = append(p.tail, v)
	p.n++
	if len(p.tail) == p.pageItems {
		if err := p.flush(); err != nil {
			p.err = err
			return err
		}
	}
	return nil
}

func (p *Paged[T]) Get(i int) (T, error) {
	var zero T
	if p.closed {
		return zero, ErrClosed
	}
	if i < 0 || i >= p.n {
		return zero, ErrOutOfRange
	}
	pg := i / p.pageItems
	if pg == p.pages {
		return p.tail[i%p.pageItems], nil
	}
	items, err := p.load(pg)
	if err != nil {
		return zero, err
	}
	return items[i%p.pageItems], nil
}

func (p *Paged[T]) Len() int { return p.n }

func (p *Paged[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if p.closed {
			p.err = ErrClosed
			return
		}
		i := 0
		for pg := 0; pg < p.pages; pg++ {
			items, err := p.load(pg)
			if err != nil {
				p.err = err
				return
			}
			for _, v := range items {
				if !yield(i, v) {
					return
				}
				i++
			}
		}
		for _, v := range p.tail {
			if !yield(i, v) {
				return
			}
			i++
		}
	}
}

func (p *Paged[T]) Err() error { return p.err }

// Close drops the page store and removes its file.
func (p *Paged[T]) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.tail = nil
	p.cache = nil
	return errors.Join(p.db.Close(), os.Remove(p.path))
}

func (p *Paged[T]) flush() error {
	buf := p.buf[:0]
	for _, v := range p.tail {
		var err error
		if buf, err = p.codec.Append(buf, v); err != nil {
			return fmt.Errorf("bigseq: encode page %d: %w", p.pages, err)
		}
	}
	key := pageKey(p.pages)
	err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Put(key, buf)
	})
	if err != nil {
		return fmt.Errorf("bigseq: store page %d: %w", p.pages, err)
	}
	p.buf = buf
	p.pages++
	p.tail = p.tail[:0]
	return nil
}

func (p *Paged[T]) load(pg int) ([]T, error) {
	if v, ok := p.cache.Get(pg); ok {
		return v.([]T), nil
	}
	items := make([]T, 0, p.pageItems)
	err := p.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(pagesBucket).Get(pageKey(pg))
		if raw == nil {
			return fmt.Errorf("bigseq: page %d missing", pg)
		}
		for len(raw) > 0 {
			v, n, err := p.codec.Decode(raw)
			if err != nil {
				return fmt.Errorf("bigseq: decode page %d: %w", pg, err)
			}
			if n <= 0 || n > len(raw) {
				return fmt.Errorf("bigseq: decode page %d: codec consumed %d of %d bytes", pg, n, len(raw))
			}
			items = append(items, v)
			raw = raw[n:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(items) != p.pageItems {
		return nil, fmt.Errorf("bigseq: page %d holds %d items, want %d", pg, len(items), p.pageItems)
	}
	p.cache.Add(pg, items)
	return items, nil
}

func pageKey(pg int) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(pg))
}
