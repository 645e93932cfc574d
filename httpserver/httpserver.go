// Package httpserver contains the JSON-over-HTTP plumbing shared by the relay
// API handlers: request decoding, response envelopes and header-derived request
// context.
package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxOriginIDLength = 255

type originKey struct{}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status code. Encoding failures after the
// header is written can only be logged by the caller's middleware.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform error envelope.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Error: msg})
}

// DecodeJSON decodes one JSON value from r.
func DecodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// WithOrigin copies the x-relay-origin header into the request context so
// handlers can tag logs and metrics with the calling frontend.
func WithOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("x-relay-origin")
		if origin != "" {
			if len(origin) > maxOriginIDLength {
				WriteError(w, http.StatusBadRequest, "x-relay-origin header is too long")
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), originKey{}, origin))
		}
		next.ServeHTTP(w, r)
	})
}

func GetOrigin(ctx context.Context) string {
	value, ok := ctx.Value(originKey{}).(string)
	if !ok {
		return ""
	}
	return value
}

// LogRequests logs one debug line per request.
func LogRequests(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startAt := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(startAt)),
		)
	})
}

// New returns an http.Server with the timeouts used across the project.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
