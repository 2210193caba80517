package r1cs

import (
	"fmt"

	"github.com/samcharles93/r1cs/internal/bigseq"
	"github.com/samcharles93/r1cs/pkg/binfile"
)

const labelSize = 8

// ReadWireMap decodes the unique map section: one u64 label per wire. The
// section must hold exactly h.NVars labels.
func ReadWireMap(f *binfile.File, h Header, opts Options) (bigseq.Sequence[uint64], error) {
	if err := startMap(f, h); err != nil {
		return nil, err
	}
	seq, err := bigseq.New(int(h.NVars), bigseq.Codec[uint64](bigseq.Uint64Codec{}), opts.Sequence)
	if err != nil {
		return nil, err
	}
	progress := opts.reporter(SectionWireMap, uint64(h.NVars), "read", DefaultInterval)
	for i := uint32(0); i < h.NVars; i++ {
		progress.step(uint64(i))
		v, err := f.ReadU64()
		if err != nil {
			_ = seq.Close()
			return nil, err
		}
		if err := seq.Append(v); err != nil {
			_ = seq.Close()
			return nil, err
		}
	}
	if err := f.EndRead(true); err != nil {
		_ = seq.Close()
		return nil, err
	}
	return seq, nil
}

// ReadWireMapRange returns up to limit labels starting at wire from without
// reading the rest of the section.
func ReadWireMapRange(f *binfile.File, h Header, from, limit uint32) ([]uint64, error) {
	if err := startMap(f, h); err != nil {
		return nil, err
	}
	from = min(from, h.NVars)
	n := min(limit, h.NVars-from)
	if err := f.Skip(int64(from) * labelSize); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for range n {
		v, err := f.ReadU64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, f.EndRead(false)
}

func startMap(f *binfile.File, h Header) error {
	if err := f.StartReadUnique(SectionWireMap); err != nil {
		return err
	}
	sec, err := f.Section()
	if err != nil {
		return err
	}
	if want := uint64(h.NVars) * labelSize; sec.Size != want {
		_ = f.EndRead(false)
		return fmt.Errorf("%w: %w: section holds %d bytes, %d wires need %d",
			ErrInvalidMapSize, binfile.ErrSizeMismatch, sec.Size, h.NVars, want)
	}
	return nil
}

// WriteWireMap writes m as the map section. m must hold h.NVars labels.
func WriteWireMap(f *binfile.File, h Header, m bigseq.Sequence[uint64], opts Options) error {
	if m.Len() != int(h.NVars) {
		return fmt.Errorf("%w: header says %d wires, map has %d", ErrInvalidMapSize, h.NVars, m.Len())
	}
	if err := f.StartWrite(SectionWireMap); err != nil {
		return err
	}
	progress := opts.reporter(SectionWireMap, uint64(h.NVars), "write", DefaultInterval)
	for i, v := range m.All() {
		progress.step(uint64(i))
		if err := f.WriteU64(v); err != nil {
			return err
		}
	}
	if err := m.Err(); err != nil {
		return err
	}
	return f.EndWrite()
}
