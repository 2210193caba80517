package r1cs

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/goccy/go-json"
)

// JSONHeader is the header as it appears in exported documents. Big numbers
// are decimal strings.
type JSONHeader struct {
	N8           uint32 `json:"n8"`
	Prime        string `json:"prime"`
	Curve        string `json:"curve,omitempty"`
	NVars        uint32 `json:"nVars"`
	NOutputs     uint32 `json:"nOutputs"`
	NPubInputs   uint32 `json:"nPubInputs"`
	NPrvInputs   uint32 `json:"nPrvInputs"`
	NLabels      uint64 `json:"nLabels"`
	NConstraints uint32 `json:"nConstraints"`
}

func (h Header) JSON() JSONHeader {
	out := JSONHeader{
		N8:           h.N8,
		NVars:        h.NVars,
		NOutputs:     h.NOutputs,
		NPubInputs:   h.NPubInputs,
		NPrvInputs:   h.NPrvInputs,
		NLabels:      h.NLabels,
		NConstraints: h.NConstraints,
	}
	if h.Prime != nil {
		out.Prime = h.Prime.String()
	}
	if id, ok := h.Curve(); ok {
		out.Curve = id.String()
	}
	return out
}

func (j JSONHeader) header() (Header, error) {
	prime, ok := new(big.Int).SetString(j.Prime, 10)
	if !ok {
		return Header{}, fmt.Errorf("%w: prime %q is not a decimal integer", ErrInvalidHeader, j.Prime)
	}
	h := Header{
		N8:           j.N8,
		Prime:        prime,
		NVars:        j.NVars,
		NOutputs:     j.NOutputs,
		NPubInputs:   j.NPubInputs,
		NPrvInputs:   j.NPrvInputs,
		NLabels:      j.NLabels,
		NConstraints: j.NConstraints,
	}
	if h.N8 == 0 {
		h.N8 = NewHeader(prime).N8
	}
	return h, h.validate()
}

// MarshalJSON encodes the combination as an object from wire index to decimal
// coefficient, keys in ascending wire order.
func (lc LinearCombination) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range lc.terms {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatUint(uint64(t.Wire), 10))
		buf.WriteString(`":"`)
		buf.WriteString(t.Coeff.String())
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (lc *LinearCombination) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*lc = LinearCombination{}
	for k, v := range raw {
		wire, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return fmt.Errorf("r1cs: wire %q: %w", k, err)
		}
		coeff, ok := new(big.Int).SetString(v, 10)
		if !ok || coeff.Sign() < 0 {
			return fmt.Errorf("r1cs: wire %d: bad coefficient %q", wire, v)
		}
		lc.Set(uint32(wire), coeff)
	}
	return nil
}

// MarshalJSON encodes the constraint as [A, B, C].
func (c Constraint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]LinearCombination{c.A, c.B, c.C})
}

func (c *Constraint) UnmarshalJSON(data []byte) error {
	var lcs [3]LinearCombination
	if err := json.Unmarshal(data, &lcs); err != nil {
		return err
	}
	c.A, c.B, c.C = lcs[0], lcs[1], lcs[2]
	return nil
}

type jsonCircuit struct {
	Header      JSONHeader   `json:"header"`
	Constraints []Constraint `json:"constraints"`
	Map         []uint64     `json:"map"`
}

// ExportJSON streams c to w as {"header":…,"constraints":[…],"map":[…]}.
// Sections that were not loaded are written as null.
func ExportJSON(w io.Writer, c *Circuit) error {
	bw := bufio.NewWriter(w)
	hdr, err := json.Marshal(c.Header.JSON())
	if err != nil {
		return err
	}
	bw.WriteString(`{"header":`)
	bw.Write(hdr)

	bw.WriteString(`,"constraints":`)
	if c.Constraints == nil {
		bw.WriteString("null")
	} else {
		bw.WriteByte('[')
		for i, con := range c.Constraints.All() {
			if i > 0 {
				bw.WriteByte(',')
			}
			b, err := con.MarshalJSON()
			if err != nil {
				return fmt.Errorf("constraint %d: %w", i, err)
			}
			bw.Write(b)
		}
		if err := c.Constraints.Err(); err != nil {
			return err
		}
		bw.WriteByte(']')
	}

	bw.WriteString(`,"map":`)
	if c.Map == nil {
		bw.WriteString("null")
	} else {
		bw.WriteByte('[')
		for i, v := range c.Map.All() {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(strconv.FormatUint(v, 10))
		}
		if err := c.Map.Err(); err != nil {
			return err
		}
		bw.WriteByte(']')
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// ImportJSON reads a document produced by ExportJSON back into an in-memory
// circuit. The header's constraint count must match the constraints given.
func ImportJSON(r io.Reader) (*Circuit, error) {
	var doc jsonCircuit
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("r1cs: decode json: %w", err)
	}
	h, err := doc.Header.header()
	if err != nil {
		return nil, err
	}
	if int(h.NConstraints) != len(doc.Constraints) {
		return nil, fmt.Errorf("%w: header says %d, document has %d", ErrConstraintCount, h.NConstraints, len(doc.Constraints))
	}
	return NewCircuit(h, doc.Constraints, doc.Map), nil
}
