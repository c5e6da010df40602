package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/source"
)

// maxUploadBytes bounds multipart uploads (50 MiB covers any realistic deck).
const maxUploadBytes = 50 << 20

// handleExtract runs the full pipeline on an uploaded file (multipart field
// "file") or a server-local path (JSON body {"path": ...}).
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	src, err := s.openSource(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer src.Close()

	s.logger.Debug("extract request",
		zap.String("document_id", src.ID()),
		zap.String("name", src.Name()))
	result, err := s.orchestrator.Run(r.Context(), src)
	if err != nil {
		if errors.Is(err, models.ErrDocumentUnreadable) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("extraction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// openSource resolves the request body into a document source.
func (s *Server) openSource(r *http.Request) (source.DocumentSource, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/json" {
		if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
			file, header, err := r.FormFile("file")
			if err != nil {
				return nil, errors.New("multipart field 'file' is required")
			}
			defer file.Close()
			content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if err != nil {
				return nil, err
			}
			return source.OpenBytes(content, header.Filename)
		}
	}
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		return nil, errors.New("provide a multipart 'file' or a JSON body with 'path'")
	}
	if _, err := os.Stat(body.Path); err != nil {
		return nil, errors.New("file not found: " + body.Path)
	}
	return source.Open(body.Path)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.cache.Result(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrCacheMiss) {
			s.respondError(w, http.StatusNotFound, "result not found")
			return
		}
		s.logger.Error("result fetch failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type lookupRequest struct {
	DocumentID string `json:"document_id"`
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	// Supplement triggers on-demand extraction on a miss when the original
	// file path is given.
	Supplement bool   `json:"supplement"`
	Path       string `json:"path"`
}

// handleLookup searches cached pages of a document by category or keywords.
// On a miss with supplement requested, it extracts a few more pages on demand.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" || req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "document_id and query are required")
		return
	}
	s.logger.Debug("lookup request",
		zap.String("document_id", req.DocumentID),
		zap.String("query", req.Query))

	entries, err := s.cache.Lookup(r.Context(), req.DocumentID, req.Query, req.Limit)
	if err == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "supplemented": false})
		return
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		s.logger.Error("lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !req.Supplement || req.Path == "" {
		s.respondError(w, http.StatusNotFound, "no cached pages match")
		return
	}

	src, err := source.Open(req.Path)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	defer src.Close()
	entries, err = s.orchestrator.Supplement(r.Context(), src, models.Category(req.Query), req.Limit)
	if err != nil {
		if errors.Is(err, models.ErrCacheMiss) {
			s.respondError(w, http.StatusNotFound, "no pages found for query")
			return
		}
		s.logger.Error("supplement failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "supplemented": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cache.Entries(r.Context())
	if err != nil {
		s.logger.Error("status: count entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	calls, tokens := s.orchestrator.BudgetSpent()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"cache_entries": entries,
		"vision_calls":  calls,
		"vision_tokens": tokens,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
