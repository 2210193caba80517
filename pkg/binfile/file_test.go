package binfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

const testMagic = "tst1"

type rawSection struct {
	id      uint32
	size    uint64
	payload []byte
}

func buildContainer(magic string, version uint32, sections ...rawSection) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	_ = binary.Write(&buf, binary.LittleEndian, version)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(sections)))
	for _, s := range sections {
		_ = binary.Write(&buf, binary.LittleEndian, s.id)
		_ = binary.Write(&buf, binary.LittleEndian, s.size)
		buf.Write(s.payload)
	}
	return buf.Bytes()
}

func section(id uint32, payload []byte) rawSection {
	return rawSection{id: id, size: uint64(len(payload)), payload: payload}
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCreateOpenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rt.bin")
	w, err := Create(path, testMagic, 1, Options{PageSize: 32, CachePages: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.StartWrite(1); err != nil {
		t.Fatalf("start header: %v", err)
	}
	if err := w.WriteU32(0xA1B2C3D4); err != nil {
		t.Fatalf("write u32: %v", err)
	}
	if err := w.WriteU64(0x0102030405060708); err != nil {
		t.Fatalf("write u64: %v", err)
	}
	if err := w.EndWrite(); err != nil {
		t.Fatalf("end header: %v", err)
	}
	payload := bytes.Repeat([]byte("section-two "), 20)
	if err := w.StartWrite(2); err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := w.EndWrite(); err != nil {
		t.Fatalf("end payload: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := buildContainer(testMagic, 1,
		section(1, []byte{0xD4, 0xC3, 0xB2, 0xA1, 8, 7, 6, 5, 4, 3, 2, 1}),
		section(2, payload),
	)
	if !bytes.Equal(raw, want) {
		t.Fatalf("layout mismatch:\n got %x\nwant %x", raw, want)
	}

	r, err := Open(path, testMagic, 1, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if r.Version() != 1 || r.Magic() != testMagic {
		t.Fatalf("preamble mismatch: magic=%q version=%d", r.Magic(), r.Version())
	}
	entries := r.Directory().Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(entries))
	}
	if entries[0].ID != 1 || entries[0].Offset != 24 || entries[0].Size != 12 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	if err := r.StartReadUnique(1); err != nil {
		t.Fatalf("start read: %v", err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0xA1B2C3D4 {
		t.Fatalf("read u32: got %x err=%v", u32, err)
	}
	u64, err := r.ReadU64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("read u64: got %x err=%v", u64, err)
	}
	if err := r.EndRead(true); err != nil {
		t.Fatalf("end read: %v", err)
	}

	if err := r.StartReadUnique(2); err != nil {
		t.Fatalf("start read payload: %v", err)
	}
	got := make([]byte, len(payload))
	if err := r.ReadFull(got); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	if err := r.EndRead(true); err != nil {
		t.Fatalf("end read payload: %v", err)
	}
}

func TestOpenRejectsBadPreamble(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", buildContainer("nope", 1, section(1, []byte{1})), ErrBadMagic},
		{"short", []byte("tst"), ErrBadMagic},
		{"version", buildContainer(testMagic, 2, section(1, []byte{1})), ErrUnsupportedVersion},
		{"length past eof", func() []byte {
			b := buildContainer(testMagic, 1, section(1, []byte{1, 2, 3, 4}))
			binary.LittleEndian.PutUint64(b[16:], 5)
			return b
		}(), ErrSizeMismatch},
		{"truncated table", func() []byte {
			b := buildContainer(testMagic, 1, section(1, []byte{1, 2, 3, 4}))
			binary.LittleEndian.PutUint32(b[8:], 2)
			return b
		}(), ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeTemp(t, tt.data)
			f, err := Open(path, testMagic, 1, Options{})
			if err == nil {
				_ = f.Close()
				t.Fatalf("expected %v", tt.want)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUniqueSectionLookup(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, buildContainer(testMagic, 1,
		section(1, []byte{1}),
		section(7, []byte{2}),
		section(7, []byte{3, 4}),
	))
	f, err := Open(path, testMagic, 1, Options{NoMmap: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.StartReadUnique(3); !errors.Is(err, ErrMissingSection) {
		t.Fatalf("expected ErrMissingSection, got %v", err)
	}
	if err := f.StartReadUnique(7); !errors.Is(err, ErrDuplicateSection) {
		t.Fatalf("expected ErrDuplicateSection, got %v", err)
	}

	dups := f.Directory().Lookup(7)
	if len(dups) != 2 || dups[0].Size != 1 || dups[1].Size != 2 {
		t.Fatalf("unexpected duplicates: %+v", dups)
	}
	if err := f.StartRead(dups[1]); err != nil {
		t.Fatalf("start read entry: %v", err)
	}
	buf := make([]byte, 2)
	if err := f.ReadFull(buf); err != nil || !bytes.Equal(buf, []byte{3, 4}) {
		t.Fatalf("read duplicate payload: %x err=%v", buf, err)
	}
	if err := f.EndRead(true); err != nil {
		t.Fatalf("end read: %v", err)
	}
}

func TestEndReadChecksConsumedBytes(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, buildContainer(testMagic, 1, section(1, []byte{1, 0, 0, 0, 9, 9})))
	f, err := Open(path, testMagic, 1, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.StartReadUnique(1); err != nil {
		t.Fatalf("start read: %v", err)
	}
	if _, err := f.ReadU32(); err != nil {
		t.Fatalf("read u32: %v", err)
	}
	if err := f.EndRead(true); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}

	if err := f.StartReadUnique(1); err != nil {
		t.Fatalf("restart read: %v", err)
	}
	if _, err := f.ReadU32(); err != nil {
		t.Fatalf("read u32: %v", err)
	}
	if _, err := f.ReadU64(); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected overrun to fail with ErrSizeMismatch, got %v", err)
	}
	if err := f.EndRead(false); err != nil {
		t.Fatalf("unchecked end read: %v", err)
	}
}

func TestSectionStateMachine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.bin")
	f, err := Create(path, testMagic, 1, Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.WriteU32(1); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("write outside section: expected ErrNotOpen, got %v", err)
	}
	if err := f.EndWrite(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("end without start: expected ErrNotOpen, got %v", err)
	}
	if err := f.StartWrite(1); err != nil {
		t.Fatalf("start write: %v", err)
	}
	if err := f.StartWrite(2); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
	if err := f.EndRead(true); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("end read while writing: expected ErrNotOpen, got %v", err)
	}
	if err := f.StartReadUnique(1); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("read while writing: expected ErrAlreadyOpen, got %v", err)
	}

	err = f.Close()
	if !errors.Is(err, ErrSectionOpen) || !errors.Is(err, ErrState) {
		t.Fatalf("close with open section: expected ErrSectionOpen, got %v", err)
	}
	if err := f.StartWrite(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
	if err := f.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on double close, got %v", err)
	}
}

func TestReadHandleRejectsWrites(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, buildContainer(testMagic, 1, section(1, nil)))
	f, err := Open(path, testMagic, 1, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.StartWrite(1); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := f.StartReadUnique(1); err != nil {
		t.Fatalf("empty section read: %v", err)
	}
	if err := f.EndRead(true); err != nil {
		t.Fatalf("empty section end: %v", err)
	}
}

func TestReopenSharesDirectory(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, buildContainer(testMagic, 1,
		section(1, []byte{1, 0, 0, 0}),
		section(2, []byte{2, 0, 0, 0}),
	))
	f, err := Open(path, testMagic, 1, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	g, err := f.Reopen()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = g.Close() }()

	if g.Directory() != f.Directory() {
		t.Fatalf("reopened handle should share the directory")
	}
	if err := f.StartReadUnique(1); err != nil {
		t.Fatalf("start read on f: %v", err)
	}
	if err := g.StartReadUnique(2); err != nil {
		t.Fatalf("start read on g while f is reading: %v", err)
	}
	a, _ := f.ReadU32()
	b, _ := g.ReadU32()
	if a != 1 || b != 2 {
		t.Fatalf("unexpected values: %d %d", a, b)
	}
	if err := f.EndRead(true); err != nil {
		t.Fatalf("end f: %v", err)
	}
	if err := g.EndRead(true); err != nil {
		t.Fatalf("end g: %v", err)
	}
}

func TestFieldCodec(t *testing.T) {
	t.Parallel()

	bn254, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	if w := FieldWidth(bn254); w != 32 {
		t.Fatalf("bn254 width: got %d want 32", w)
	}
	if w := FieldWidth(big.NewInt(251)); w != 8 {
		t.Fatalf("small prime width: got %d want 8", w)
	}

	buf := make([]byte, 4)
	if err := EncodeField(buf, big.NewInt(0x01020304)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(buf, []byte{4, 3, 2, 1}) {
		t.Fatalf("not little-endian: %x", buf)
	}
	if got := DecodeField(buf); got.Int64() != 0x01020304 {
		t.Fatalf("decode: got %s", got)
	}

	if err := EncodeField(buf, new(big.Int).Lsh(big.NewInt(1), 32)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for 2^32 in 4 bytes, got %v", err)
	}
	if err := EncodeField(buf, big.NewInt(-1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for negative value, got %v", err)
	}

	full := make([]byte, 32)
	if err := EncodeField(full, bn254); err != nil {
		t.Fatalf("encode prime: %v", err)
	}
	if DecodeField(full).Cmp(bn254) != 0 {
		t.Fatalf("prime round trip mismatch")
	}
}
