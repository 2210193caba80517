package r1csstore

import (
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"lukechampine.com/blake3"

	"github.com/samcharles93/r1cs/pkg/r1cs"
)

func bn254(t *testing.T) *big.Int {
	t.Helper()
	p, ok := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	if !ok {
		t.Fatalf("parse prime")
	}
	return p
}

func writeCircuit(t *testing.T, dir, name string, n int) {
	t.Helper()
	cs := make([]r1cs.Constraint, n)
	for i := range cs {
		cs[i].A.Set(uint32(i), big.NewInt(int64(i)+1))
		cs[i].C.Set(0, big.NewInt(7))
	}
	h := r1cs.NewHeader(bn254(t))
	h.NVars = 4
	h.NOutputs = 1
	h.NLabels = 10
	c := r1cs.NewCircuit(h, cs, []uint64{0, 2, 4, 8})
	if err := r1cs.Save(filepath.Join(dir, name+Ext), c, r1cs.SaveOptions{}); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
}

func TestListAndInfo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCircuit(t, dir, "b", 2)
	writeCircuit(t, dir, "a", 5)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	names, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names = %v", names)
	}

	info, err := s.Info("a")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Header.NConstraints != 5 || info.Header.NVars != 4 || info.Curve != "bn254" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(info.Sections) != 3 || info.Sections[0].ID != r1cs.SectionHeader {
		t.Fatalf("sections = %+v", info.Sections)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "a"+Ext))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sum := blake3.Sum256(raw)
	if info.Digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest = %s", info.Digest)
	}
	if info.Size != int64(len(raw)) {
		t.Fatalf("size = %d, want %d", info.Size, len(raw))
	}
}

func TestInfoRefreshesOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCircuit(t, dir, "c", 1)
	s, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	first, err := s.Info("c")
	if err != nil {
		t.Fatalf("info: %v", err)
	}

	writeCircuit(t, dir, "c", 3)
	second, err := s.Info("c.r1cs")
	if err != nil {
		t.Fatalf("info after rewrite: %v", err)
	}
	if second.Header.NConstraints != 3 || second.Digest == first.Digest {
		t.Fatalf("stale info: %+v", second)
	}
}

func TestRangedReads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCircuit(t, dir, "r", 10)
	s, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	cs, h, err := s.Constraints("r", 4, 3)
	if err != nil {
		t.Fatalf("constraints: %v", err)
	}
	if h.NConstraints != 10 || len(cs) != 3 {
		t.Fatalf("got %d constraints of %d", len(cs), h.NConstraints)
	}
	for i, c := range cs {
		wire := uint32(4 + i)
		if got := c.A.Get(wire); got == nil || got.Int64() != int64(wire)+1 {
			t.Fatalf("constraint %d: %s", wire, c)
		}
	}

	tail, _, err := s.Constraints("r", 9, 100)
	if err != nil || len(tail) != 1 {
		t.Fatalf("tail: %d %v", len(tail), err)
	}
	none, _, err := s.Constraints("r", 50, 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("past end: %d %v", len(none), err)
	}

	labels, _, err := s.Labels("r", 1, 2)
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	if len(labels) != 2 || labels[0] != 2 || labels[1] != 4 {
		t.Fatalf("labels = %v", labels)
	}
}

func TestUnknownAndInvalidNames(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := s.Info("missing"); !errors.Is(err, ErrCircuitNotFound) {
		t.Fatalf("expected ErrCircuitNotFound, got %v", err)
	}
	for _, name := range []string{"", "..", "../etc/passwd", `a\b`} {
		if _, err := s.Info(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
}
