// Package httputil carries the shared HTTP plumbing: router construction,
// JSON rendering, the error envelope, and request validation.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"pdf-search/internal/apperr"
)

// Validator validates request structs tagged with `validate` rules.
var Validator = validator.New(validator.WithRequiredStructEnabled())

// ErrorBody is the envelope every error response uses. Exactly one of
// Message or Messages is set.
type ErrorBody struct {
	Message   string   `json:"message,omitempty"`
	Messages  []string `json:"messages,omitempty"`
	Status    int      `json:"status"`
	Timestamp string   `json:"timestamp"`
}

// NewRouter creates a chi router with standard middleware (RequestID, Recoverer, Logger, Timeout, RealIP).
func NewRouter(log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(Recoverer(log))
	r.Use(RequestLogger(log))

	return r
}

// WriteJSON writes a JSON response with proper headers.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

// WriteError logs err and renders the error envelope. The status code
// comes from the error's kind; unclassified errors render as 500 with a
// generic message so internals never leak to clients.
func WriteError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	message := http.StatusText(status)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err, "status", status)
		message = http.StatusText(status)
	} else {
		log.Warn("request rejected", "err", err, "status", status)
	}

	WriteJSON(w, status, ErrorBody{
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ValidationError renders one message per failed field as a 400.
func ValidationError(log *slog.Logger, w http.ResponseWriter, err error) {
	messages := []string{err.Error()}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		messages = make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			messages = append(messages, fe.Error())
		}
	}
	log.Warn("request validation failed", "errors", messages)

	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Messages:  messages,
		Status:    http.StatusBadRequest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthHandler returns a simple health check endpoint.
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Warn("healthz write failed", "err", err)
		}
	}
}

// RequestLogger is a lightweight HTTP logger that uses slog.
func RequestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Recoverer logs panics via slog while preserving chi's Recoverer behavior.
func Recoverer(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", "panic", rec, "path", r.URL.Path, "method", r.Method, "request_id", middleware.GetReqID(r.Context()))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
