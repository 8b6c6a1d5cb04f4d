package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/store"
)

// maxImportBytes bounds an import request body.
const maxImportBytes = 32 << 20

func (s *Server) handleListSeeds(w http.ResponseWriter, r *http.Request) {
	items := s.engine.Items()

	if status := r.URL.Query().Get("status"); status != "" {
		st := store.Status(status)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "status must be active or buried")
			return
		}
		filtered := []store.Item{}
		for _, it := range items {
			if it.Soil.Status == st {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []store.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetSeed(w http.ResponseWriter, r *http.Request) {
	it, ok := s.engine.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "seed not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	it, err := s.engine.Capture(req.Text)
	if errors.Is(err, engine.ErrEmptySeed) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// mutationResponse reports whether a lifecycle call changed anything.
// Unknown ids and invalid transitions answer changed=false, not an error.
func (s *Server) mutationResponse(w http.ResponseWriter, id string, changed bool, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{"id": id, "changed": changed}
	if it, ok := s.engine.Get(id); ok {
		resp["item"] = it
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Success *bool `json:"success"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Success == nil {
		writeError(w, http.StatusBadRequest, "success (bool) required")
		return
	}
	changed, err := s.engine.MarkReviewed(id, *req.Success)
	s.mutationResponse(w, id, changed, err)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changed, err := s.engine.Archive(id)
	s.mutationResponse(w, id, changed, err)
}

func (s *Server) handleResurrect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changed, err := s.engine.Resurrect(id)
	s.mutationResponse(w, id, changed, err)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "clearing every seed requires ?confirm=true")
		return
	}
	if err := s.engine.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.engine.Review()})
}

func (s *Server) handleGaps(w http.ResponseWriter, r *http.Request) {
	gaps := s.engine.Gaps()
	if gaps == nil {
		gaps = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"gaps": gaps})
}

// handlePulse runs a pulse. The pulse is detached from the request context
// so a client disconnect does not abort it. With ?async=true the response
// returns immediately and progress arrives on the event stream.
func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	if s.engine.Summarizer == nil {
		writeError(w, http.StatusPreconditionFailed, engine.ErrNoSummarizer.Error())
		return
	}
	if s.engine.Pulsing() {
		writeError(w, http.StatusConflict, engine.ErrPulseInProgress.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())

	if r.URL.Query().Get("async") == "true" {
		go func() {
			if _, err := s.engine.RunPulse(ctx); err != nil {
				log.Printf("pulse: %v", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		return
	}

	report, err := s.engine.RunPulse(ctx)
	switch {
	case errors.Is(err, engine.ErrPulseInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoSummarizer):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handlePulses(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.engine.DB.RecentPulses(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(runs))
	for _, p := range runs {
		out = append(out, map[string]any{
			"id":          p.ID,
			"started_at":  p.StartedAt,
			"finished_at": p.FinishedAt,
			"queued":      p.Queued,
			"distilled":   p.Distilled,
			"failed":      p.Failed,
			"synthesized": p.Synthesized,
			"note":        p.Note,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pulses": out})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := s.engine.Document()

	var (
		data []byte
		err  error
		ct   string
		ext  string
	)
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		data, err = doc.EncodeJSON()
		ct, ext = "application/json", "json"
	case "yaml", "yml":
		data, err = doc.EncodeYAML()
		ct, ext = "application/yaml", "yaml"
	default:
		writeError(w, http.StatusBadRequest, "format must be json or yaml")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", `attachment; filename="seedsoil-export.`+ext+`"`)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	var doc *store.Document
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		doc, err = store.DecodeYAMLDocument(body)
	} else {
		doc, err = store.DecodeDocument(body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.engine.Import(doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "imported", "items": len(doc.Items)})
}
