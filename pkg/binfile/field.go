package binfile

import (
	"fmt"
	"math/big"
)

// FieldWidth returns the byte width used to encode elements of the field with
// the given prime: its bit length rounded up to whole 64-bit words.
func FieldWidth(prime *big.Int) uint32 {
	if prime == nil || prime.Sign() <= 0 {
		return 0
	}
	words := (prime.BitLen()-1)/64 + 1
	return uint32(words * 8)
}

// EncodeField writes v into dst as len(dst) little-endian bytes.
// Values that are negative or need more than len(dst) bytes are rejected.
func EncodeField(dst []byte, v *big.Int) error {
	if v == nil {
		clear(dst)
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s", ErrOverflow, v)
	}
	if v.BitLen() > 8*len(dst) {
		return fmt.Errorf("%w: value needs %d bits, width is %d bytes", ErrOverflow, v.BitLen(), len(dst))
	}
	v.FillBytes(dst)
	reverse(dst)
	return nil
}

// DecodeField interprets all of src as a little-endian unsigned integer.
func DecodeField(src []byte) *big.Int {
	be := make([]byte, len(src))
	for i, b := range src {
		be[len(src)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
