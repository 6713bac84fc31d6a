package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/article-crawler/internal/delivery/http/request"
	"github.com/user/article-crawler/internal/delivery/http/response"
	"github.com/user/article-crawler/internal/entity"
	"github.com/user/article-crawler/internal/usecase"
)

type Handler struct {
	urlManager usecase.URLManager
	logger     *zap.Logger
}

func NewHandler(urlManager usecase.URLManager, logger *zap.Logger) *Handler {
	return &Handler{
		urlManager: urlManager,
		logger:     logger.With(zap.String("component", "http_handler")),
	}
}

func (h *Handler) HandleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req request.EnqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.urlManager.Submit(r.Context(), usecase.SubmitRequest{
		URL:         req.URL,
		SourceID:    req.SourceID,
		Kind:        entity.JobKind(req.Kind),
		Priority:    req.Priority,
		MaxRetries:  req.MaxRetries,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidURL) {
			h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
			return
		}
		if errors.Is(err, usecase.ErrInvalidJobKind) {
			h.writeJSONError(w, "Invalid job kind, expected single_url or sitemap", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to enqueue job", zap.String("url", req.URL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.EnqueueJobResponse{
		Status:  "success",
		Message: "URL queued for crawling",
		JobID:   res.JobID,
		URL:     res.URL,
		Kind:    string(res.Kind),
		Created: res.Created,
	}
	status := http.StatusAccepted
	if !res.Created {
		resp.Message = "URL already has an active job"
		status = http.StatusOK
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleGetCrawlStatus(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.urlManager.GetStatus(r.Context(), rawURL)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidURL) {
			h.writeJSONError(w, "Invalid URL format in query parameter", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to get crawl status", zap.String("url", rawURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if status.CurrentStatus == entity.StatusNotFound {
		h.writeJSONError(w, "Crawl status not found for the given URL", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewCrawlStatusResponse(status))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
