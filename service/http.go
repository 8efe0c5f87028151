package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stencilworks/redline/editor"
	"github.com/stencilworks/redline/runlog"
)

// RegisterHTTP registers the service endpoints on a chi router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/grammar/check", s.handleCheck)
	r.Post("/api/v1/edits/apply", s.handleApply)
	r.Post("/api/v1/variants/apply", s.handleVariants)
	r.Get("/api/v1/runs/{run_id}", s.handleRun)
	r.Get("/healthz", s.handleHealth)
}

type checkRequest struct {
	HTML    string `json:"html"`
	Preview bool   `json:"preview,omitempty"`
}

type applyRequest struct {
	HTML     string                `json:"html"`
	Edits    []editor.ProposedEdit `json:"edits"`
	Strategy string                `json:"strategy,omitempty"`
	Preview  bool                  `json:"preview,omitempty"`
}

type variantsRequest struct {
	HTML       string                `json:"html"`
	VariantKey string                `json:"variant_key"`
	Edits      []editor.ProposedEdit `json:"edits"`
}

type resultResponse struct {
	RunID string `json:"run_id"`
	*editor.ApplicationResult
	Markdown string `json:"markdown,omitempty"`
}

func (s *Service) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HTML == "" {
		http.Error(w, "html is required", http.StatusBadRequest)
		return
	}

	res, runID, err := s.CheckGrammar(r.Context(), req.HTML)
	if errors.Is(err, ErrNoProposer) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("grammar check failed", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.writeResult(w, runID, res, req.Preview)
}

func (s *Service) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HTML == "" {
		http.Error(w, "html is required", http.StatusBadRequest)
		return
	}

	res, runID, err := s.ApplyEdits(r.Context(), req.HTML, req.Edits, req.Strategy)
	if err != nil {
		s.logger.Error("apply edits failed", "strategy", req.Strategy, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeResult(w, runID, res, req.Preview)
}

func (s *Service) handleVariants(w http.ResponseWriter, r *http.Request) {
	var req variantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HTML == "" || req.VariantKey == "" {
		http.Error(w, "html and variant_key are required", http.StatusBadRequest)
		return
	}

	res, runID, err := s.ApplyVariants(r.Context(), req.HTML, req.VariantKey, req.Edits)
	if err != nil {
		s.logger.Error("apply variants failed", "key", req.VariantKey, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeResult(w, runID, res, false)
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	rec, err := s.Run(r.Context(), runID)
	if errors.Is(err, runlog.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("fetch run failed", "run_id", runID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) writeResult(w http.ResponseWriter, runID string, res *editor.ApplicationResult, preview bool) {
	resp := resultResponse{RunID: runID, ApplicationResult: res}
	if preview {
		resp.Markdown = s.Markdown(res.HTML)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
