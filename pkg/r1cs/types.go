package r1cs

import (
	"errors"
	"iter"
	"math/big"
	"slices"
)

const (
	// Magic is the container tag of an r1cs file.
	Magic = "r1cs"
	// Version is the newest container version this package reads and the one
	// it writes.
	Version uint32 = 1
)

// Section ids.
const (
	SectionHeader      uint32 = 1
	SectionConstraints uint32 = 2
	SectionWireMap     uint32 = 3
)

var (
	ErrInvalidMapSize  = errors.New("r1cs: wire map size does not match nVars")
	ErrDuplicateIndex  = errors.New("r1cs: duplicate wire index in linear combination")
	ErrInvalidHeader   = errors.New("r1cs: invalid header")
	ErrConstraintCount = errors.New("r1cs: constraint count does not match header")
	ErrFieldRange      = errors.New("r1cs: coefficient not below prime")
)

// Term is one wire of a linear combination.
type Term struct {
	Wire  uint32
	Coeff *big.Int
}

// LinearCombination is a sparse weighted sum of wires. Terms are kept sorted by
// wire and never carry a zero coefficient. The zero value is an empty
// combination.
type LinearCombination struct {
	terms []Term
}

// LC builds a combination from a wire → coefficient map. Zero coefficients are
// dropped.
func LC(m map[uint32]int64) LinearCombination {
	var lc LinearCombination
	for w, c := range m {
		lc.Set(w, big.NewInt(c))
	}
	return lc
}

func (lc *LinearCombination) search(wire uint32) (int, bool) {
	return slices.BinarySearchFunc(lc.terms, wire, func(t Term, w uint32) int {
		switch {
		case t.Wire < w:
			return -1
		case t.Wire > w:
			return 1
		}
		return 0
	})
}

// Set assigns coeff to wire. A nil or zero coefficient removes the wire.
func (lc *LinearCombination) Set(wire uint32, coeff *big.Int) {
	i, found := lc.search(wire)
	if coeff == nil || coeff.Sign() == 0 {
		if found {
			lc.terms = slices.Delete(lc.terms, i, i+1)
		}
		return
	}
	if found {
		lc.terms[i].Coeff = coeff
		return
	}
	lc.terms = slices.Insert(lc.terms, i, Term{Wire: wire, Coeff: coeff})
}

// Get returns the coefficient of wire, or nil when the wire is absent.
func (lc LinearCombination) Get(wire uint32) *big.Int {
	if i, ok := lc.search(wire); ok {
		return lc.terms[i].Coeff
	}
	return nil
}

func (lc LinearCombination) Len() int { return len(lc.terms) }

// Terms returns the terms in ascending wire order. The slice must not be
// modified.
func (lc LinearCombination) Terms() []Term { return lc.terms }

func (lc LinearCombination) All() iter.Seq2[uint32, *big.Int] {
	return func(yield func(uint32, *big.Int) bool) {
		for _, t := range lc.terms {
			if !yield(t.Wire, t.Coeff) {
				return
			}
		}
	}
}

func (lc LinearCombination) Equal(other LinearCombination) bool {
	return slices.EqualFunc(lc.terms, other.terms, func(a, b Term) bool {
		return a.Wire == b.Wire && a.Coeff.Cmp(b.Coeff) == 0
	})
}

// Constraint is A·x ∘ B·x = C·x.
type Constraint struct {
	A, B, C LinearCombination
}

func (c Constraint) Equal(other Constraint) bool {
	return c.A.Equal(other.A) && c.B.Equal(other.B) && c.C.Equal(other.C)
}
