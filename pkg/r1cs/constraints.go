package r1cs

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"

	"github.com/samcharles93/r1cs/internal/bigseq"
	"github.com/samcharles93/r1cs/pkg/binfile"
)

// ConstraintCodec stores constraints in their section wire form so paged
// sequences hold exactly the bytes the file does.
func ConstraintCodec(n8 uint32) bigseq.Codec[Constraint] {
	return constraintCodec{n8: n8}
}

type constraintCodec struct{ n8 uint32 }

func (c constraintCodec) Append(dst []byte, v Constraint) ([]byte, error) {
	return appendConstraint(dst, v, c.n8)
}

func (c constraintCodec) Decode(src []byte) (Constraint, int, error) {
	var (
		out Constraint
		off int
	)
	for _, lc := range []*LinearCombination{&out.A, &out.B, &out.C} {
		if len(src)-off < 4 {
			return out, 0, fmt.Errorf("r1cs: short linear combination at byte %d", off)
		}
		count := binary.LittleEndian.Uint32(src[off:])
		off += 4
		need := uint64(count) * uint64(4+c.n8)
		if need > uint64(len(src)-off) {
			return out, 0, fmt.Errorf("r1cs: linear combination of %d terms overruns buffer", count)
		}
		parsed, err := parseTerms(src[off:off+int(need)], count, c.n8, nil)
		if err != nil {
			return out, 0, err
		}
		*lc = parsed
		off += int(need)
	}
	return out, off, nil
}

func appendLC(dst []byte, lc LinearCombination, n8 uint32) ([]byte, error) {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(lc.Len()))
	for _, t := range lc.Terms() {
		dst = binary.LittleEndian.AppendUint32(dst, t.Wire)
		start := len(dst)
		dst = append(dst, make([]byte, n8)...)
		if err := binfile.EncodeField(dst[start:], t.Coeff); err != nil {
			return dst, fmt.Errorf("wire %d: %w", t.Wire, err)
		}
	}
	return dst, nil
}

func appendConstraint(dst []byte, c Constraint, n8 uint32) ([]byte, error) {
	var err error
	for i, lc := range []LinearCombination{c.A, c.B, c.C} {
		if dst, err = appendLC(dst, lc, n8); err != nil {
			return dst, fmt.Errorf("r1cs: %c: %w", "ABC"[i], err)
		}
	}
	return dst, nil
}

// parseTerms decodes count (wire, coeff) pairs from raw. Pairs may come in any
// order; a repeated wire is an error and zero coefficients are dropped. When
// prime is non-nil every coefficient must be below it.
func parseTerms(raw []byte, count, n8 uint32, prime *big.Int) (LinearCombination, error) {
	terms := make([]Term, 0, count)
	stride := int(4 + n8)
	for i := 0; i < int(count); i++ {
		rec := raw[i*stride : (i+1)*stride]
		t := Term{
			Wire:  binary.LittleEndian.Uint32(rec),
			Coeff: binfile.DecodeField(rec[4:]),
		}
		if prime != nil && t.Coeff.Cmp(prime) >= 0 {
			return LinearCombination{}, fmt.Errorf("%w: wire %d", ErrFieldRange, t.Wire)
		}
		terms = append(terms, t)
	}
	slices.SortFunc(terms, func(a, b Term) int { return cmp.Compare(a.Wire, b.Wire) })
	for i := 1; i < len(terms); i++ {
		if terms[i].Wire == terms[i-1].Wire {
			return LinearCombination{}, fmt.Errorf("%w: wire %d", ErrDuplicateIndex, terms[i].Wire)
		}
	}
	terms = slices.DeleteFunc(terms, func(t Term) bool { return t.Coeff.Sign() == 0 })
	return LinearCombination{terms: terms}, nil
}

type lcReader struct {
	f     *binfile.File
	n8    uint32
	prime *big.Int
	buf   []byte
}

func newLCReader(f *binfile.File, h Header, strict bool) *lcReader {
	r := &lcReader{f: f, n8: h.N8}
	if strict {
		r.prime = h.Prime
	}
	return r
}

// bodySize returns the byte length of count terms, rejecting counts the open
// section cannot hold before anything is allocated.
func (r *lcReader) bodySize(count uint32) (int, error) {
	need := uint64(count) * uint64(4+r.n8)
	left, err := r.f.Remaining()
	if err != nil {
		return 0, err
	}
	if need > uint64(left) {
		return 0, fmt.Errorf("%w: linear combination of %d terms needs %d bytes, %d remain in section",
			binfile.ErrSizeMismatch, count, need, left)
	}
	return int(need), nil
}

func (r *lcReader) read() (LinearCombination, error) {
	count, err := r.f.ReadU32()
	if err != nil {
		return LinearCombination{}, err
	}
	size, err := r.bodySize(count)
	if err != nil {
		return LinearCombination{}, err
	}
	if cap(r.buf) < size {
		r.buf = make([]byte, size)
	}
	raw := r.buf[:size]
	if err := r.f.ReadFull(raw); err != nil {
		return LinearCombination{}, err
	}
	return parseTerms(raw, count, r.n8, r.prime)
}

func (r *lcReader) skip() error {
	count, err := r.f.ReadU32()
	if err != nil {
		return err
	}
	size, err := r.bodySize(count)
	if err != nil {
		return err
	}
	return r.f.Skip(int64(size))
}

func (r *lcReader) constraint() (Constraint, error) {
	var (
		c   Constraint
		err error
	)
	if c.A, err = r.read(); err != nil {
		return c, err
	}
	if c.B, err = r.read(); err != nil {
		return c, err
	}
	c.C, err = r.read()
	return c, err
}

func (r *lcReader) skipConstraint() error {
	for range 3 {
		if err := r.skip(); err != nil {
			return err
		}
	}
	return nil
}

// ReadConstraints decodes the unique constraints section into a sequence of
// h.NConstraints elements. Large counts are paged per opts.Sequence; the
// caller owns the returned sequence and must Close it.
func ReadConstraints(f *binfile.File, h Header, opts Options) (bigseq.Sequence[Constraint], error) {
	seq, err := bigseq.New(int(h.NConstraints), ConstraintCodec(h.N8), opts.Sequence)
	if err != nil {
		return nil, err
	}
	if err := f.StartReadUnique(SectionConstraints); err != nil {
		_ = seq.Close()
		return nil, err
	}
	r := newLCReader(f, h, opts.StrictField)
	progress := opts.reporter(SectionConstraints, uint64(h.NConstraints), "read", DefaultReadInterval)
	for i := uint32(0); i < h.NConstraints; i++ {
		progress.step(uint64(i))
		c, err := r.constraint()
		if err != nil {
			_ = seq.Close()
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		if err := seq.Append(c); err != nil {
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

// ScanConstraints decodes constraints starting at index from and hands each to
// fn until fn returns false or the section ends. Constraints before from are
// skipped without decoding their coefficients. Stopping early leaves the
// section length unchecked.
func ScanConstraints(f *binfile.File, h Header, opts Options, from uint32, fn func(i uint32, c Constraint) bool) error {
	if err := f.StartReadUnique(SectionConstraints); err != nil {
		return err
	}
	r := newLCReader(f, h, opts.StrictField)
	for i := uint32(0); i < min(from, h.NConstraints); i++ {
		if err := r.skipConstraint(); err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
	}
	progress := opts.reporter(SectionConstraints, uint64(h.NConstraints), "scan", DefaultInterval)
	for i := from; i < h.NConstraints; i++ {
		progress.step(uint64(i))
		c, err := r.constraint()
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		if !fn(i, c) {
			return f.EndRead(false)
		}
	}
	return f.EndRead(true)
}

// WriteConstraints writes list as the constraints section. Each constraint is
// encoded into one buffer and written with a single call.
func WriteConstraints(f *binfile.File, h Header, list bigseq.Sequence[Constraint], opts Options) error {
	if list.Len() != int(h.NConstraints) {
		return fmt.Errorf("%w: header says %d, list has %d", ErrConstraintCount, h.NConstraints, list.Len())
	}
	if err := f.StartWrite(SectionConstraints); err != nil {
		return err
	}
	progress := opts.reporter(SectionConstraints, uint64(h.NConstraints), "write", DefaultInterval)
	var buf []byte
	for i, c := range list.All() {
		progress.step(uint64(i))
		var err error
		if buf, err = appendConstraint(buf[:0], c, h.N8); err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	if err := list.Err(); err != nil {
		return err
	}
	return f.EndWrite()
}
