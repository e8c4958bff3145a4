package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/embedsvc/embedsvc/internal/embedder"
	"github.com/embedsvc/embedsvc/internal/service"
)

// BackendErrorHeader carries the backend error code of a failed embed request.
const BackendErrorHeader = "X-Backend-Error-Code"

// EmbeddingService is the model-facing side of the API.
type EmbeddingService interface {
	Health() service.Health
	Embed(ctx context.Context, text string) (*service.Result, error)
	Status() service.Status
}

// Handler handles HTTP requests for the embedding API
type Handler struct {
	svc       EmbeddingService
	version   string
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler creates a new Handler instance
func NewHandler(svc EmbeddingService, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:       svc,
		version:   version,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Health handles GET /health requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

// Embed handles POST /embed requests
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	req, apiErr := decodeEmbedRequest(r.Body)
	if apiErr != nil {
		writeError(w, *apiErr)
		return
	}

	res, err := h.svc.Embed(r.Context(), *req.Text)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "embedding failed", "error", err)
		var embErr *embedder.EmbeddingError
		if errors.As(err, &embErr) {
			w.Header().Set(BackendErrorHeader, embErr.Code)
		}
		writeError(w, ErrEmbeddingFailed.WithDetails(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Status handles GET /status requests
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	model := h.svc.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Daemon: &DaemonStatus{
			PID:           os.Getpid(),
			Version:       h.version,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		},
		Model: &model,
	})
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, ErrNotFound)
}

// MethodNotAllowed answers known routes requested with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, ErrMethodNotAllowed)
}

func decodeEmbedRequest(body io.Reader) (*EmbedRequest, *APIError) {
	data, err := io.ReadAll(body)
	if err != nil {
		e := ErrInvalidJSON.WithDetails(err.Error())
		return nil, &e
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		e := ErrInvalidJSON.WithDetails(err.Error())
		return nil, &e
	}

	textRaw, ok := raw["text"]
	if !ok || bytes.Equal(bytes.TrimSpace(textRaw), []byte("null")) {
		return nil, &ErrTextRequired
	}

	var text string
	if err := json.Unmarshal(textRaw, &text); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ErrTextRequired
		}
		e := ErrInvalidJSON.WithDetails(err.Error())
		return nil, &e
	}
	return &EmbedRequest{Text: &text}, nil
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
