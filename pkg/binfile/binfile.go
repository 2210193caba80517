// Package binfile implements the sectioned binary container used by the
// circom family of file formats (r1cs, wtns, zkey).
//
// A container starts with a 4-byte ASCII magic, a little-endian u32 version
// and a u32 section count, followed by that many sections. Each section is a
// u32 id, a u64 payload length and the payload itself:
//
//	offset 0 : magic    [4]byte
//	offset 4 : version  u32
//	offset 8 : sections u32
//	repeated : id u32 | length u64 | payload [length]byte
//
// Section lengths are not known until a section has been written, so writers
// emit a zero placeholder and patch it when the section is ended. Readers scan
// the section table once, recording payload offsets without reading payloads,
// and then seek to the sections they need.
package binfile

import "encoding/binary"

const (
	// MagicSize is the length of the ASCII file tag.
	MagicSize = 4

	// preambleSize covers magic, version and section count.
	preambleSize = MagicSize + 4 + 4

	// sectionHeaderSize covers a section id and its payload length.
	sectionHeaderSize = 4 + 8

	// sectionCountOffset is where the section count lives in the preamble.
	sectionCountOffset = MagicSize + 4
)

func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func leU32(b []byte) uint32     { return binary.LittleEndian.Uint32(b) }
func leU64(b []byte) uint64     { return binary.LittleEndian.Uint64(b) }
