// Package pagedfile implements a random-access file channel that moves data in
// fixed-size pages held in a bounded LRU cache.
//
// Read-only files are memory mapped when the platform allows it, so reads are
// plain copies out of the mapping. Writable files keep dirty pages in the
// cache and write them back on eviction and on Close.
package pagedfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sys/unix"
)

const (
	DefaultPageSize   = 1 << 20 // 1 MiB
	DefaultCachePages = 64
)

var (
	ErrClosed   = errors.New("pagedfile: file closed")
	ErrReadOnly = errors.New("pagedfile: file opened read-only")
)

// Options tunes the page cache. Zero values select the defaults.
type Options struct {
	PageSize   int
	CachePages int
	// NoMmap forces the paged read path even where mmap is available.
	NoMmap bool
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.CachePages <= 0 {
		o.CachePages = DefaultCachePages
	}
	return o
}

type page struct {
	data  []byte
	dirty bool
}

// File is a paged channel over an *os.File. It is not safe for concurrent use.
type File struct {
	f        *os.File
	name     string
	pageSize int64
	cache    *lru.Cache
	mapped   []byte
	pos      int64
	size     int64
	writable bool
	closed   bool

	// err holds the first write-back failure seen during eviction.
	err error
}

// Create truncates or creates path and returns a writable paged file.
func Create(path string, opts Options) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	pf := newFile(f, opts)
	pf.writable = true
	return pf, nil
}

// Open opens path read-only. The whole file is mapped when possible; otherwise
// pages are read on demand.
func Open(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	pf := newFile(f, opts)
	pf.size = stat.Size()

	if !opts.NoMmap && pf.size > 0 && pf.size <= int64(int(^uint(0)>>1)) {
		data, err := unix.Mmap(int(f.Fd()), 0, int(pf.size), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			pf.mapped = data
		}
	}
	return pf, nil
}

func newFile(f *os.File, opts Options) *File {
	opts = opts.withDefaults()
	pf := &File{
		f:        f,
		name:     f.Name(),
		pageSize: int64(opts.PageSize),
		cache:    lru.New(opts.CachePages),
	}
	pf.cache.OnEvicted = pf.evict
	return pf
}

// Name returns the path the file was opened with.
func (pf *File) Name() string { return pf.name }

// Size returns the logical size of the file, including unflushed pages.
func (pf *File) Size() int64 { return pf.size }

// Mapped reports whether reads are served from a memory mapping.
func (pf *File) Mapped() bool { return pf.mapped != nil }

func (pf *File) Read(p []byte) (int, error) {
	if pf.closed {
		return 0, ErrClosed
	}
	if pf.err != nil {
		return 0, pf.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if pf.pos >= pf.size {
		return 0, io.EOF
	}

	if pf.mapped != nil {
		n := copy(p, pf.mapped[pf.pos:])
		pf.pos += int64(n)
		return n, nil
	}

	var n int
	for len(p) > 0 && pf.pos < pf.size {
		idx := pf.pos / pf.pageSize
		off := pf.pos % pf.pageSize
		pg, err := pf.page(idx)
		if err != nil {
			return n, err
		}
		avail := min(pf.pageSize-off, pf.size-pf.pos)
		c := copy(p, pg.data[off:off+avail])
		p = p[c:]
		n += c
		pf.pos += int64(c)
	}
	return n, nil
}

func (pf *File) Write(p []byte) (int, error) {
	if pf.closed {
		return 0, ErrClosed
	}
	if !pf.writable {
		return 0, ErrReadOnly
	}
	if pf.err != nil {
		return 0, pf.err
	}

	var n int
	for len(p) > 0 {
		idx := pf.pos / pf.pageSize
		off := pf.pos % pf.pageSize
		pg, err := pf.page(idx)
		if err != nil {
			return n, err
		}
		c := copy(pg.data[off:], p)
		pg.dirty = true
		p = p[c:]
		n += c
		pf.pos += int64(c)
		if pf.pos > pf.size {
			pf.size = pf.pos
		}
	}
	return n, pf.err
}

// Seek sets the position for the next Read or Write. Seeking past the end is
// allowed on writable files; the gap reads back as zeros.
func (pf *File) Seek(offset int64, whence int) (int64, error) {
	if pf.closed {
		return 0, ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = pf.pos + offset
	case io.SeekEnd:
		abs = pf.size + offset
	default:
		return 0, fmt.Errorf("pagedfile: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("pagedfile: negative position %d", abs)
	}
	pf.pos = abs
	return abs, nil
}

// Close writes back dirty pages, trims the file to its logical size and
// releases the descriptor and any mapping.
func (pf *File) Close() error {
	if pf.closed {
		return nil
	}
	pf.closed = true

	var errs []error
	if pf.writable {
		// RemoveOldest runs the eviction hook, which writes dirty pages back.
		for pf.cache.Len() > 0 {
			pf.cache.RemoveOldest()
		}
		if pf.err != nil {
			errs = append(errs, pf.err)
		} else {
			if err := pf.f.Truncate(pf.size); err != nil {
				errs = append(errs, err)
			}
			if err := pf.f.Sync(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if pf.mapped != nil {
		if err := unix.Munmap(pf.mapped); err != nil {
			errs = append(errs, err)
		}
		pf.mapped = nil
	}
	if err := pf.f.Close(); err != nil {
		errs = append(errs, err)
	}
	pf.cache = nil
	return errors.Join(errs...)
}

func (pf *File) page(idx int64) (*page, error) {
	if v, ok := pf.cache.Get(idx); ok {
		return v.(*page), nil
	}
	pg := &page{data: make([]byte, pf.pageSize)}
	start := idx * pf.pageSize
	if err := readFullAt(pf.f, pg.data, start); err != nil {
		return nil, err
	}
	pf.cache.Add(idx, pg)
	return pg, pf.err
}

func (pf *File) evict(key lru.Key, value interface{}) {
	pg := value.(*page)
	if !pg.dirty {
		return
	}
	if err := pf.flush(key.(int64), pg); err != nil && pf.err == nil {
		pf.err = err
	}
}

func (pf *File) flush(idx int64, pg *page) error {
	start := idx * pf.pageSize
	n := min(pf.pageSize, pf.size-start)
	if n <= 0 {
		return nil
	}
	p := pg.data[:n]
	for len(p) > 0 {
		w, err := pf.f.WriteAt(p, start)
		if err != nil {
			return err
		}
		p = p[w:]
		start += int64(w)
	}
	pg.dirty = false
	return nil
}

// readFullAt fills p from off, leaving bytes past end-of-file zeroed.
func readFullAt(r io.ReaderAt, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := r.ReadAt(p, off)
		p = p[n:]
		off += int64(n)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}
