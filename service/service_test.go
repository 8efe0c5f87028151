package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stencilworks/redline/editor"
	"github.com/stencilworks/redline/proposal"
	"github.com/stencilworks/redline/runlog"
)

// stubProposer returns canned corrections and counts invocations.
type stubProposer struct {
	calls   int32
	records []editor.CorrectionRecord
}

func (p *stubProposer) Propose(_ context.Context, _ []proposal.NodeText) ([]editor.CorrectionRecord, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.records, nil
}

func newTestService(t *testing.T, p proposal.Proposer) *Service {
	t.Helper()
	db, err := runlog.Open(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(Config{}, db, p, logger)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func router(svc *Service) chi.Router {
	r := chi.NewRouter()
	svc.RegisterHTTP(r)
	return r
}

func TestGrammarCheckEndToEnd(t *testing.T) {
	stub := &stubProposer{records: []editor.CorrectionRecord{{
		ID: 0,
		Changes: []editor.ProposedEdit{
			{Find: "teh", Replace: "the"},
			{Find: "recieve", Replace: "receive"},
		},
	}}}
	svc := newTestService(t, stub)
	r := router(svc)

	w := doJSON(t, r, http.MethodPost, "/api/v1/grammar/check", checkRequest{
		HTML:    `<p>This is a teh test. I recieve emails.</p>`,
		Preview: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp resultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID == "" {
		t.Error("missing run_id")
	}
	if resp.Stats.Applied != 2 || resp.Stats.Failed != 0 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if !strings.Contains(resp.HTML, "This is a the test. I receive emails.") {
		t.Errorf("html = %q", resp.HTML)
	}
	if !strings.Contains(resp.Markdown, "receive emails") {
		t.Errorf("markdown preview = %q", resp.Markdown)
	}

	// The run is retrievable from the audit store.
	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run fetch status = %d", w.Code)
	}
	var rec runlog.RunRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Mode != "grammar_check" || len(rec.Outcomes) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestGrammarCheckWithoutProposer(t *testing.T) {
	svc := newTestService(t, nil)
	w := doJSON(t, router(svc), http.MethodPost, "/api/v1/grammar/check", checkRequest{HTML: "<p>x</p>"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGrammarCheckEmptyDocumentSkipsCollaborator(t *testing.T) {
	stub := &stubProposer{}
	svc := newTestService(t, stub)

	w := doJSON(t, router(svc), http.MethodPost, "/api/v1/grammar/check", checkRequest{
		HTML: `<div><img src="x"/></div>`,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp resultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.Total != 0 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if atomic.LoadInt32(&stub.calls) != 0 {
		t.Errorf("collaborator invoked %d times for empty document", stub.calls)
	}
}

func TestApplyEditsKeyedDuplicatesAcrossNodes(t *testing.T) {
	svc := newTestService(t, nil)

	w := doJSON(t, router(svc), http.MethodPost, "/api/v1/edits/apply", applyRequest{
		HTML:  `<div><p>our product rocks</p><p>try our product</p></div>`,
		Edits: []editor.ProposedEdit{{Find: "our product", Replace: "Widget X"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp resultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.Applied != 2 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if strings.Count(resp.HTML, "Widget X") != 2 {
		t.Errorf("html = %q", resp.HTML)
	}
}

func TestApplyEditsContextStrategyBoundary(t *testing.T) {
	svc := newTestService(t, nil)

	w := doJSON(t, router(svc), http.MethodPost, "/api/v1/edits/apply", applyRequest{
		HTML:     `<p>bea<b>uty</b></p>`,
		Edits:    []editor.ProposedEdit{{Find: "beauty", Replace: "grace"}},
		Strategy: "context",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp resultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.FailedEdits) != 1 || resp.FailedEdits[0].Status != editor.StatusBoundaryIssue {
		t.Fatalf("result: %+v", resp.ApplicationResult)
	}
}

func TestApplyEditsUnknownStrategy(t *testing.T) {
	svc := newTestService(t, nil)
	w := doJSON(t, router(svc), http.MethodPost, "/api/v1/edits/apply", applyRequest{
		HTML:     `<p>x</p>`,
		Edits:    []editor.ProposedEdit{{Find: "x", Replace: "y"}},
		Strategy: "fuzzy",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestVariantsIdeaDedupAcrossRounds(t *testing.T) {
	svc := newTestService(t, nil)
	r := router(svc)

	req := variantsRequest{
		HTML:       `<p>buy now today</p>`,
		VariantKey: "tmpl-1",
		Edits:      []editor.ProposedEdit{{Find: "buy now", Replace: "order today", Idea: "urgency"}},
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/variants/apply", req)
	if w.Code != http.StatusOK {
		t.Fatalf("round 1 status = %d: %s", w.Code, w.Body)
	}
	var resp resultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.Applied != 1 {
		t.Fatalf("round 1: %+v", resp.ApplicationResult)
	}

	// Same idea in a later round is dropped before application.
	w = doJSON(t, r, http.MethodPost, "/api/v1/variants/apply", req)
	if w.Code != http.StatusOK {
		t.Fatalf("round 2 status = %d: %s", w.Code, w.Body)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.Applied != 0 || resp.Stats.Failed != 1 {
		t.Fatalf("round 2: %+v", resp.ApplicationResult)
	}
	if resp.FailedEdits[0].Status != editor.StatusSkipped {
		t.Errorf("round 2 failure = %+v", resp.FailedEdits[0])
	}
}

func TestRunNotFound(t *testing.T) {
	svc := newTestService(t, nil)
	w := doJSON(t, router(svc), http.MethodGet, "/api/v1/runs/run_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, nil)
	w := doJSON(t, router(svc), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
