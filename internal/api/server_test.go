package api

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/r1cs/internal/r1csstore"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	dir := t.TempDir()

	prime, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	cs := make([]r1cs.Constraint, 5)
	for i := range cs {
		cs[i].A.Set(uint32(i), big.NewInt(int64(i)+1))
		cs[i].B.Set(0, big.NewInt(2))
	}
	h := r1cs.NewHeader(prime)
	h.NVars = 6
	h.NLabels = 6
	c := r1cs.NewCircuit(h, cs, []uint64{0, 1, 2, 3, 4, 5})
	if err := r1cs.Save(filepath.Join(dir, "demo.r1cs"), c, r1cs.SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.r1cs"), []byte("nope, not a circuit"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := r1csstore.Open(dir, r1csstore.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	e := echo.New()
	NewServer(store, nil).Register(e)
	return e
}

func doGet(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestListCircuits(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGet(t, e, "/v1/circuits")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Fatalf("content type = %q", ct)
	}
	list := decode[CircuitList](t, rec)
	if len(list.Data) != 2 {
		t.Fatalf("expected 2 circuits, got %+v", list.Data)
	}
	broken, demo := list.Data[0], list.Data[1]
	if broken.Name != "broken" || broken.Error == "" {
		t.Fatalf("broken entry: %+v", broken)
	}
	if demo.Name != "demo" || demo.NConstraints != 5 || demo.Curve != "bn254" {
		t.Fatalf("demo entry: %+v", demo)
	}
}

func TestCircuitInfo(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGet(t, e, "/v1/circuits/demo")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	info := decode[CircuitInfo](t, rec)
	if info.Header.NConstraints != 5 || info.Header.Curve != "bn254" || info.Version != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(info.Sections) != 3 || info.Sections[1].Name != "constraints" {
		t.Fatalf("sections: %+v", info.Sections)
	}
	if len(info.Digest) != 64 {
		t.Fatalf("digest = %q", info.Digest)
	}
}

func TestCircuitErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	tests := []struct {
		path    string
		status  int
		errType string
	}{
		{path: "/v1/circuits/missing", status: http.StatusNotFound, errType: "not_found_error"},
		{path: "/v1/circuits/broken", status: http.StatusUnprocessableEntity, errType: "invalid_file_error"},
		{path: "/v1/circuits/demo/constraints?limit=0", status: http.StatusBadRequest, errType: "invalid_request_error"},
		{path: "/v1/circuits/demo/constraints?offset=-1", status: http.StatusBadRequest, errType: "invalid_request_error"},
		{path: "/v1/circuits/demo/map?limit=abc", status: http.StatusBadRequest, errType: "invalid_request_error"},
	}
	for _, tc := range tests {
		rec := doGet(t, e, tc.path)
		if rec.Code != tc.status {
			t.Fatalf("%s: status got %d want %d body=%s", tc.path, rec.Code, tc.status, rec.Body.String())
		}
		body := decode[ErrorResponse](t, rec)
		if body.Error.Type != tc.errType || body.Error.Message == "" {
			t.Fatalf("%s: error body %+v", tc.path, body)
		}
	}
}

func TestConstraintPage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGet(t, e, "/v1/circuits/demo/constraints?offset=3&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	page := decode[struct {
		Total       uint32                 `json:"total"`
		Offset      uint32                 `json:"offset"`
		Constraints [][3]map[string]string `json:"constraints"`
	}](t, rec)
	if page.Total != 5 || page.Offset != 3 || len(page.Constraints) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if got := page.Constraints[0][0]["3"]; got != "4" {
		t.Fatalf("constraint 3 A[3] = %q", got)
	}
	if got := page.Constraints[1][1]["0"]; got != "2" {
		t.Fatalf("constraint 4 B[0] = %q", got)
	}
}

func TestMapPage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doGet(t, e, "/v1/circuits/demo/map?offset=4")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	page := decode[LabelPage](t, rec)
	if page.Total != 6 || len(page.Labels) != 2 || page.Labels[0] != 4 || page.Labels[1] != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}
}
