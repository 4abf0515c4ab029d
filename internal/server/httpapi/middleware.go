package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"expense-api/internal/common"
	"expense-api/internal/server/auth"
	"github.com/google/uuid"
)

type ctxKey string

const (
	usernameKey  ctxKey = "username"
	requestIDKey ctxKey = "request_id"
)

// UsernameFromContext returns the authenticated subject placed there by
// requireAuth, or "" for unauthenticated requests.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// requireAuth authenticates a request from its Authorization header.
// Every request is authenticated independently; no session state exists.
//
// Rejections, in order:
//  1. missing header
//  2. header not of the form "Bearer <token>" (scheme case-insensitive)
//  3. token fails verification (signature, algorithm, expiry)
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, common.ErrorMissingAuthHeader.Error())
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, common.ErrorInvalidAuthHeaderFormat.Error())
			return
		}

		username, err := auth.GetUsernameFromToken(token, s.jwtSecret)
		if err != nil {
			// decode failures intentionally degrade to unauthenticated
			writeError(w, http.StatusUnauthorized, common.ErrorInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next(w, r.WithContext(ctx))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// withObservability adds request ids, request logging, and Prometheus
// accounting around the whole mux.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := normalizeRoute(r.URL.Path)
		s.metrics.observe(r.Method, route, rw.statusCode, duration)

		s.logger.Info(ctx, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"route", route,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	})
}

// normalizeRoute collapses per-record paths so metric label cardinality stays
// bounded.
func normalizeRoute(path string) string {
	if strings.HasPrefix(path, "/api/expenses/") {
		return "/api/expenses/{id}"
	}
	return path
}
