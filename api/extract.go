package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/extractor"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

// Extraction error codes.
const (
	codeExtractionFailed = "EXTRACTION_FAILED"
	codeInternalError    = "INTERNAL_ERROR"
)

type extractFailure struct {
	Status string                    `json:"status"`
	Error  schedulerapi.ExtractError `json:"error"`
}

func (s *Server) extractError(w http.ResponseWriter, status int, code, message string) {
	s.writeError(w, status, extractFailure{
		Status: "error",
		Error:  schedulerapi.ExtractError{Code: code, Message: message},
	})
}

// extractHandler specifies a handler for the /api/extract endpoint. The
// markdown rendering is always included so callers can switch formats.
func (s *Server) extractHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	var r schedulerapi.ExtractRequest
	defer req.Body.Close()
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %s", err.Error()))
		return
	}
	if r.URL == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "url is required")
		return
	}

	item, platform, err := s.extractor.Extract(req.Context(), r.URL, r.Platform, r.Cookie)
	if err != nil {
		if extractor.IsExtractionError(err) {
			s.Logger.Info("extraction failed", zap.String("url", r.URL), zap.Error(err))
			s.extractError(w, http.StatusBadRequest, codeExtractionFailed, err.Error())
			return
		}
		s.Logger.Error("extraction error", zap.String("url", r.URL), zap.Error(err))
		s.extractError(w, http.StatusInternalServerError, codeInternalError, fmt.Sprintf("Internal server error: %s", err.Error()))
		return
	}

	s.writeJSON(w, http.StatusOK, schedulerapi.ExtractResponse{
		Status:      schedulerapi.StatusSuccess,
		Data:        item,
		Markdown:    extractor.ToMarkdown(item, platform),
		Platform:    platform,
		ExtractedAt: s.now().Format(time.RFC3339),
	})
}

// platformsHandler specifies a handler for the /api/platforms endpoint.
func (s *Server) platformsHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	s.writeJSON(w, http.StatusOK, schedulerapi.PlatformsResponse{
		Status:    schedulerapi.StatusSuccess,
		Platforms: extractor.Platforms(),
	})
}

// healthHandler specifies a handler for the /api/health endpoint.
func (s *Server) healthHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	s.writeJSON(w, http.StatusOK, schedulerapi.HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().Format(time.RFC3339),
	})
}
