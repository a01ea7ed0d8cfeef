package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/appctx"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/semcache"
	"github.com/hyperjump/kotae/pkg/utils"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if !s.contexts.Known(req.ApplicationID) {
		s.respondError(w, http.StatusBadRequest, "unknown application_id")
		return
	}

	ctx := r.Context()
	s.logger.Debug("ask request", zap.Int("app_id", req.ApplicationID), utils.QuestionField(req.Question))
	if err := s.contexts.EnsureLoaded(ctx, req.ApplicationID); err != nil {
		s.fail(w, req.ApplicationID, err)
		return
	}
	answer, err := s.asker.Ask(ctx, req.Question, req.ApplicationID)
	if err != nil {
		s.fail(w, req.ApplicationID, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{
		Response: answer.Text,
		Source:   models.SourceOf(answer.FromCache),
	})
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": s.contexts.Status(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an ask failure to its HTTP status.
func statusFor(err error) (int, string) {
	var perr *rag.ProviderError
	var loadErr *appctx.LoadError
	switch {
	case errors.Is(err, appctx.ErrUnknownApplication):
		return http.StatusBadRequest, "unknown application_id"
	case errors.As(err, &loadErr):
		return http.StatusInternalServerError, "knowledge base unavailable for this application"
	case errors.Is(err, semcache.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "cache store unavailable"
	case errors.As(err, &perr) && perr.Timeout:
		return http.StatusGatewayTimeout, "generation timed out, retry later"
	case errors.As(err, &perr):
		return http.StatusBadGateway, perr.Op + " provider failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(w http.ResponseWriter, appID int, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("ask failed", zap.Int("app_id", appID), zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, msg)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
