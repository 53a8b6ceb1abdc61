package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/pipeline"
	"github.com/typetools/ttxdiff/pkg/report"
)

// stubComparer returns a fixed report or error.
type stubComparer struct {
	comparison *report.Comparison
	err        error
	lastOpts   pipeline.Options
}

func (s *stubComparer) Execute(ctx context.Context, opts pipeline.Options) (*report.Comparison, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.comparison, nil
}

// memoryStore is a minimal in-memory run history.
type memoryStore struct {
	report.NullStore
	runs map[string]*report.Comparison
}

func (m *memoryStore) Get(ctx context.Context, runID string) (*report.Comparison, error) {
	return m.runs[runID], nil
}

func (m *memoryStore) Recent(ctx context.Context, limit int) ([]report.Summary, error) {
	var out []report.Summary
	for id := range m.runs {
		out = append(out, report.Summary{RunID: id})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func sampleReport() *report.Comparison {
	return &report.Comparison{
		RunID:       "run-1",
		Source:      "/fonts/Test.glyphs",
		Toolchains:  []string{"fontc", "fontmake"},
		CompareMode: "default",
		Score:       0.98,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestHealth(t *testing.T) {
	srv := NewServer(":0", &stubComparer{}, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCompare(t *testing.T) {
	comparer := &stubComparer{comparison: sampleReport()}
	srv := NewServer(":0", comparer, nil, nil)

	body := `{"source": "/fonts/Test.glyphs", "rebuild": "none", "tolerance_budget": 0.5}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if comparer.lastOpts.Source != "/fonts/Test.glyphs" {
		t.Errorf("source = %q", comparer.lastOpts.Source)
	}
	if comparer.lastOpts.Rebuild != pipeline.RebuildNone {
		t.Errorf("rebuild = %q", comparer.lastOpts.Rebuild)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Errorf("response = %+v", resp)
	}
}

func TestCompareBadBody(t *testing.T) {
	srv := NewServer(":0", &stubComparer{}, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader("{"))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCompareErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing source", errors.New(errors.ErrCodeSourceNotFound, "no such source"), http.StatusNotFound},
		{"bad option", errors.New(errors.ErrCodeInvalidOption, "bad budget"), http.StatusBadRequest},
		{"build blowup", errors.New(errors.ErrCodeBuildError, "all toolchains failed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(":0", &stubComparer{err: tc.err}, nil, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(`{"source": "x.glyphs"}`))
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			var resp Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != string(errors.GetCode(tc.err)) {
				t.Errorf("code = %s", resp.Code)
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	store := &memoryStore{runs: map[string]*report.Comparison{"run-1": sampleReport()}}
	srv := NewServer(":0", &stubComparer{}, store, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown run status = %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	store := &memoryStore{runs: map[string]*report.Comparison{"run-1": sampleReport()}}
	srv := NewServer(":0", &stubComparer{}, store, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}
