package main

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/samcharles93/r1cs/pkg/r1cs"
)

// run executes the app with args. Commands share package level flag
// variables, so these tests do not run in parallel.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfg, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	full := append([]string{"r1cs", "--config", cfg, "--log-format", "text"}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), errOut.String(), err
}

func writeCircuit(t *testing.T, dir string) string {
	t.Helper()
	prime, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	cs := make([]r1cs.Constraint, 4)
	for i := range cs {
		cs[i].A.Set(uint32(i+1), big.NewInt(3))
		cs[i].B.Set(0, big.NewInt(1))
		cs[i].C.Set(uint32(i+2), new(big.Int).Sub(prime, big.NewInt(1)))
	}
	h := r1cs.NewHeader(prime)
	h.NVars = 6
	h.NOutputs = 1
	h.NPubInputs = 1
	h.NLabels = 8
	path := filepath.Join(dir, "demo.r1cs")
	c := r1cs.NewCircuit(h, cs, []uint64{0, 1, 2, 3, 5, 7})
	if err := r1cs.Save(path, c, r1cs.SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestInfoCommand(t *testing.T) {
	path := writeCircuit(t, t.TempDir())

	out, _, err := run(t, "info", "--file", path, "--sections", "--digest", "--json")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var report infoReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Header.Curve != "bn254" || report.Header.NConstraints != 4 || report.Header.NVars != 6 {
		t.Fatalf("unexpected header: %+v", report.Header)
	}
	if len(report.Sections) != 3 || report.Sections[2].Name != "map" || report.Sections[2].Size != 48 {
		t.Fatalf("unexpected sections: %+v", report.Sections)
	}
	if len(report.Digest) != 64 {
		t.Fatalf("digest = %q", report.Digest)
	}

	out, _, err = run(t, "info", "--file", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "curve:       bn254") || !strings.Contains(out, "constraints: 4") {
		t.Fatalf("unexpected text report:\n%s", out)
	}
}

func TestPrintCommand(t *testing.T) {
	path := writeCircuit(t, t.TempDir())

	out, _, err := run(t, "print", "--file", path, "--limit", "2", "--map")
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	for _, want := range []string{"0: [3*w1] * [1*w0]", "... 2 more", "w5 -> label 7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeCircuit(t, dir)
	jsonPath := filepath.Join(dir, "demo.json")
	copyPath := filepath.Join(dir, "copy.r1cs")

	if _, _, err := run(t, "export", "--file", path, "--out", jsonPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, _, err := run(t, "import", "--in", jsonPath, "--out", copyPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := os.ReadFile(copyPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("re-imported file differs: %d vs %d bytes", len(got), len(want))
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeCircuit(t, dir)

	out, logs, err := run(t, "check", "--file", path)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "ok") || !strings.Contains(logs, "check passed") {
		t.Fatalf("unexpected output: %q logs: %q", out, logs)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	broken := filepath.Join(dir, "broken.r1cs")
	if err := os.WriteFile(broken, data[:len(data)-8], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := run(t, "check", "--file", broken); err == nil {
		t.Fatalf("expected check to fail on a truncated file")
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info struct {
		Version   string `json:"version"`
		GoVersion string `json:"goVersion"`
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if info.Version == "" || info.GoVersion == "" {
		t.Fatalf("unexpected version info: %+v", info)
	}
}
