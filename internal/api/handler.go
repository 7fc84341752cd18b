package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
	"github.com/eugenenazirov/code-allocator/internal/parser"
	"github.com/eugenenazirov/code-allocator/internal/storage"
	"github.com/eugenenazirov/code-allocator/internal/telemetry"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const tracerName = "github.com/eugenenazirov/code-allocator/internal/api"

// Handler wires storage and the allocation engine into HTTP handlers.
type Handler struct {
	storage storage.Storage
	logger  *zap.Logger
	tracer  trace.Tracer

	clock     func() time.Time
	maxStates int
	maxAmount int
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithHandlerLogger sets the logger handed to batch partitions.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxStates bounds the search table of every engine the handler builds.
func WithMaxStates(limit int) HandlerOption {
	return func(h *Handler) {
		h.maxStates = limit
	}
}

// WithMaxAmount sets the largest amount the text parser accepts.
func WithMaxAmount(limit int) HandlerOption {
	return func(h *Handler) {
		h.maxAmount = limit
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		logger:  zap.NewNop(),
		tracer:  telemetry.Tracer(tracerName),
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxStates: allocator.DefaultMaxStates,
		maxAmount: parser.DefaultMaxAmount,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.storage.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

// handlePutSettings decodes the payload over the stored settings, so fields
// left out of the request keep their current values.
func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	req, err := h.storage.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.storage.SetSettings(r.Context(), req); err != nil {
		if errors.Is(err, storage.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, "Invalid settings", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	settings, err := h.storage.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Settings: settings,
		Message:  "Settings updated successfully",
	})
}

// engine builds an allocator for the given settings.
func (h *Handler) engine(settings storage.Settings) (*allocator.Engine, error) {
	return allocator.New(
		allocator.WithUnit(settings.QuantizationUnit),
		allocator.WithExtractionWindow(settings.ExtractionWindow),
		allocator.WithOvershootWindow(settings.OvershootWindow),
		allocator.WithMaxStates(h.maxStates),
	)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type settingsResponse struct {
	storage.Settings
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
