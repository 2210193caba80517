package r1cs

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/samcharles93/r1cs/pkg/binfile"
)

// Header is the content of section 1.
type Header struct {
	// N8 is the byte width of every field element in the file.
	N8    uint32
	Prime *big.Int

	NVars        uint32
	NOutputs     uint32
	NPubInputs   uint32
	NPrvInputs   uint32
	NLabels      uint64
	NConstraints uint32
}

// NewHeader returns a header for prime with N8 derived from its bit length.
func NewHeader(prime *big.Int) Header {
	return Header{N8: binfile.FieldWidth(prime), Prime: prime}
}

func (h Header) validate() error {
	if h.N8 == 0 {
		return fmt.Errorf("%w: n8 is zero", ErrInvalidHeader)
	}
	if h.Prime == nil || h.Prime.Sign() <= 0 {
		return fmt.Errorf("%w: prime must be positive", ErrInvalidHeader)
	}
	return nil
}

// Curve reports the curve whose scalar field is the header prime.
func (h Header) Curve() (ecc.ID, bool) {
	if h.Prime == nil {
		return ecc.UNKNOWN, false
	}
	for _, id := range ecc.Implemented() {
		if id.ScalarField().Cmp(h.Prime) == 0 {
			return id, true
		}
	}
	return ecc.UNKNOWN, false
}

// CurveName is Curve as a display string; "unknown" when unresolved.
func (h Header) CurveName() string {
	if id, ok := h.Curve(); ok {
		return id.String()
	}
	return "unknown"
}

// WriteHeader writes h as a complete header section.
func WriteHeader(f *binfile.File, h Header) error {
	if err := h.validate(); err != nil {
		return err
	}
	if err := f.StartWrite(SectionHeader); err != nil {
		return err
	}
	if err := f.WriteU32(h.N8); err != nil {
		return err
	}
	if err := f.WriteField(h.Prime, h.N8); err != nil {
		return fmt.Errorf("r1cs: prime: %w", err)
	}
	for _, v := range []uint32{h.NVars, h.NOutputs, h.NPubInputs, h.NPrvInputs} {
		if err := f.WriteU32(v); err != nil {
			return err
		}
	}
	if err := f.WriteU64(h.NLabels); err != nil {
		return err
	}
	if err := f.WriteU32(h.NConstraints); err != nil {
		return err
	}
	return f.EndWrite()
}

// ReadHeader decodes the unique header section.
func ReadHeader(f *binfile.File) (Header, error) {
	var h Header
	if err := f.StartReadUnique(SectionHeader); err != nil {
		return h, err
	}
	n8, err := f.ReadU32()
	if err != nil {
		return h, err
	}
	if n8 == 0 {
		return h, fmt.Errorf("%w: n8 is zero", ErrInvalidHeader)
	}
	h.N8 = n8
	if h.Prime, err = f.ReadField(n8); err != nil {
		return h, err
	}
	for _, dst := range []*uint32{&h.NVars, &h.NOutputs, &h.NPubInputs, &h.NPrvInputs} {
		if *dst, err = f.ReadU32(); err != nil {
			return h, err
		}
	}
	if h.NLabels, err = f.ReadU64(); err != nil {
		return h, err
	}
	if h.NConstraints, err = f.ReadU32(); err != nil {
		return h, err
	}
	if err := f.EndRead(true); err != nil {
		return h, err
	}
	if h.Prime.Sign() == 0 {
		return h, fmt.Errorf("%w: prime is zero", ErrInvalidHeader)
	}
	return h, nil
}
