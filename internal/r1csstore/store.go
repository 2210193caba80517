// Package r1csstore serves r1cs files from a directory: a listing, cached
// per-file metadata, and ranged reads of constraints and wire labels.
package r1csstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/binfile"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

const Ext = ".r1cs"

var (
	ErrCircuitNotFound = errors.New("r1csstore: circuit not found")
	ErrInvalidName     = errors.New("r1csstore: invalid circuit name")
)

type Options struct {
	File   binfile.Options
	Codec  r1cs.Options
	Logger logger.Logger
}

// Store is safe for concurrent use. Every read opens its own file handle.
type Store struct {
	dir  string
	opts Options
	log  logger.Logger

	mu    sync.Mutex
	cache map[string]cachedInfo
}

type cachedInfo struct {
	modTime time.Time
	size    int64
	info    Info
}

// Info describes one file in the store.
type Info struct {
	Name     string
	Size     int64
	ModTime  time.Time
	Header   r1cs.Header
	Curve    string
	Version  uint32
	Sections []binfile.Entry
	// Digest is the hex blake3-256 of the whole file.
	Digest string
}

func Open(dir string, opts Options) (*Store, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("r1csstore: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("r1csstore: %s is not a directory", dir)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		dir:   dir,
		opts:  opts,
		log:   log.With("component", "r1csstore"),
		cache: make(map[string]cachedInfo),
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// List returns the names of the r1cs files in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("r1csstore: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, strings.TrimSuffix(e.Name(), Ext))
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) path(name string) (string, os.FileInfo, error) {
	name = strings.TrimSuffix(name, Ext)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(s.dir, name+Ext)
	st, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: %s", ErrCircuitNotFound, name)
	}
	if err != nil {
		return "", nil, err
	}
	return p, st, nil
}

// Info returns the metadata of name. Results are cached until the file's size
// or modification time changes.
func (s *Store) Info(name string) (Info, error) {
	p, st, err := s.path(name)
	if err != nil {
		return Info{}, err
	}
	key := filepath.Base(p)

	s.mu.Lock()
	c, ok := s.cache[key]
	s.mu.Unlock()
	if ok && c.size == st.Size() && c.modTime.Equal(st.ModTime()) {
		return c.info, nil
	}

	info, err := s.scan(p)
	if err != nil {
		return Info{}, err
	}
	info.Name = strings.TrimSuffix(key, Ext)
	info.Size = st.Size()
	info.ModTime = st.ModTime()

	s.mu.Lock()
	s.cache[key] = cachedInfo{modTime: st.ModTime(), size: st.Size(), info: info}
	s.mu.Unlock()
	s.log.Debug("scanned circuit", "name", info.Name, "size", info.Size, "constraints", info.Header.NConstraints)
	return info, nil
}

func (s *Store) scan(p string) (Info, error) {
	f, err := binfile.Open(p, r1cs.Magic, r1cs.Version, s.opts.File)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = f.Close() }()

	h, err := r1cs.ReadHeader(f)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", p, err)
	}
	digest, err := Digest(p)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Header:   h,
		Curve:    h.CurveName(),
		Version:  f.Version(),
		Sections: f.Directory().Entries(),
		Digest:   digest,
	}, nil
}

// Constraints decodes at most limit constraints of name starting at offset.
func (s *Store) Constraints(name string, offset, limit uint32) ([]r1cs.Constraint, r1cs.Header, error) {
	f, h, err := s.open(name)
	if err != nil {
		return nil, r1cs.Header{}, err
	}
	defer func() { _ = f.Close() }()

	out := make([]r1cs.Constraint, 0, min(limit, h.NConstraints-min(offset, h.NConstraints)))
	if limit == 0 {
		return out, h, nil
	}
	err = r1cs.ScanConstraints(f, h, s.opts.Codec, offset, func(_ uint32, c r1cs.Constraint) bool {
		out = append(out, c)
		return uint32(len(out)) < limit
	})
	if err != nil {
		return nil, h, err
	}
	return out, h, nil
}

// Labels returns at most limit wire labels of name starting at wire offset.
func (s *Store) Labels(name string, offset, limit uint32) ([]uint64, r1cs.Header, error) {
	f, h, err := s.open(name)
	if err != nil {
		return nil, r1cs.Header{}, err
	}
	defer func() { _ = f.Close() }()

	labels, err := r1cs.ReadWireMapRange(f, h, offset, limit)
	if err != nil {
		return nil, h, err
	}
	return labels, h, nil
}

func (s *Store) open(name string) (*binfile.File, r1cs.Header, error) {
	p, _, err := s.path(name)
	if err != nil {
		return nil, r1cs.Header{}, err
	}
	f, err := binfile.Open(p, r1cs.Magic, r1cs.Version, s.opts.File)
	if err != nil {
		return nil, r1cs.Header{}, err
	}
	h, err := r1cs.ReadHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, r1cs.Header{}, fmt.Errorf("%s: %w", p, err)
	}
	return f, h, nil
}

// Digest returns the hex blake3-256 of the file at path.
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
