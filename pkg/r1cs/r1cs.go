// Package r1cs reads and writes rank-1 constraint system files: a binfile
// container tagged "r1cs" holding a header section, a constraints section
// and a wire map section.
package r1cs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/r1cs/internal/bigseq"
	"github.com/samcharles93/r1cs/pkg/binfile"
)

// Circuit is a decoded r1cs file. Constraints and Map are nil when they were
// not requested from Load.
type Circuit struct {
	Header      Header
	Constraints bigseq.Sequence[Constraint]
	Map         bigseq.Sequence[uint64]
}

// NewCircuit builds an in-memory circuit. NConstraints is taken from
// constraints; every other header field is used as given.
func NewCircuit(h Header, constraints []Constraint, wireMap []uint64) *Circuit {
	h.NConstraints = uint32(len(constraints))
	return &Circuit{
		Header:      h,
		Constraints: bigseq.FromSlice(constraints),
		Map:         bigseq.FromSlice(wireMap),
	}
}

// Close releases the storage behind the loaded sequences.
func (c *Circuit) Close() error {
	var errs []error
	if c.Constraints != nil {
		errs = append(errs, c.Constraints.Close())
		c.Constraints = nil
	}
	if c.Map != nil {
		errs = append(errs, c.Map.Close())
		c.Map = nil
	}
	return errors.Join(errs...)
}

// ReadHeaderFile decodes only the header of the file at path.
func ReadHeaderFile(path string, opts binfile.Options) (Header, error) {
	f, err := binfile.Open(path, Magic, Version, opts)
	if err != nil {
		return Header{}, err
	}
	h, err := ReadHeader(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Load decodes the file at path. The header is always read; the constraints
// and the wire map only when requested.
func Load(path string, opts LoadOptions) (*Circuit, error) {
	f, err := binfile.Open(path, Magic, Version, opts.File)
	if err != nil {
		return nil, err
	}
	c, err := load(f, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		_ = c.Close()
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func load(f *binfile.File, opts LoadOptions) (*Circuit, error) {
	h, err := ReadHeader(f)
	if err != nil {
		return nil, err
	}
	c := &Circuit{Header: h}

	if opts.Concurrent && opts.LoadConstraints && opts.LoadMap {
		err = loadConcurrent(f, c, opts)
	} else {
		err = loadSequential(f, c, opts)
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func loadSequential(f *binfile.File, c *Circuit, opts LoadOptions) error {
	var err error
	if opts.LoadConstraints {
		if c.Constraints, err = ReadConstraints(f, c.Header, opts.Options); err != nil {
			return err
		}
	}
	if opts.LoadMap {
		if c.Map, err = ReadWireMap(f, c.Header, opts.Options); err != nil {
			return err
		}
	}
	return nil
}

// loadConcurrent decodes the constraints on a second handle sharing f's
// directory while the map is decoded on f.
func loadConcurrent(f *binfile.File, c *Circuit, opts LoadOptions) error {
	other, err := f.Reopen()
	if err != nil {
		return err
	}
	var g errgroup.Group
	g.Go(func() error {
		seq, err := ReadConstraints(other, c.Header, opts.Options)
		if cerr := other.Close(); err == nil && cerr != nil {
			_ = seq.Close()
			err = cerr
		}
		if err != nil {
			return err
		}
		c.Constraints = seq
		return nil
	})
	g.Go(func() error {
		seq, err := ReadWireMap(f, c.Header, opts.Options)
		if err != nil {
			return err
		}
		c.Map = seq
		return nil
	})
	return g.Wait()
}

// Save writes c to path. The file is written next to path under a temporary
// name and renamed into place once complete.
func Save(path string, c *Circuit, opts SaveOptions) (err error) {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := binfile.Create(tmp, Magic, Version, opts.File)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = Write(f, c, opts.Options); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// Write encodes c into f as header, constraints and map sections. f stays
// open; closing it patches the section count.
func Write(f *binfile.File, c *Circuit, opts Options) error {
	h := c.Header
	if h.N8 == 0 {
		h.N8 = binfile.FieldWidth(h.Prime)
	}
	constraints := c.Constraints
	if constraints == nil {
		constraints = bigseq.NewMemory[Constraint](0)
	}
	wireMap := c.Map
	if wireMap == nil {
		wireMap = bigseq.NewMemory[uint64](0)
	}
	if constraints.Len() != int(h.NConstraints) {
		return fmt.Errorf("%w: header says %d, list has %d", ErrConstraintCount, h.NConstraints, constraints.Len())
	}
	if wireMap.Len() != int(h.NVars) {
		return fmt.Errorf("%w: header says %d wires, map has %d", ErrInvalidMapSize, h.NVars, wireMap.Len())
	}

	if err := WriteHeader(f, h); err != nil {
		return err
	}
	if err := WriteConstraints(f, h, constraints, opts); err != nil {
		return err
	}
	return WriteWireMap(f, h, wireMap, opts)
}
