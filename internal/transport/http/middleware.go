package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strogmv/walletd/internal/pkg/auth"
	"github.com/strogmv/walletd/internal/pkg/correlation"
	"github.com/strogmv/walletd/internal/pkg/errors"
	"github.com/strogmv/walletd/internal/pkg/logger"
)

type authContextKey struct{}

type authContext struct {
	UserID string
}

// CorrelationMiddleware adopts the client's correlation id, or generates one,
// and echoes it on the response.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := correlation.Normalize(r.Header.Get(correlation.Header))
		if !ok {
			id, ok = correlation.Normalize(r.Header.Get(correlation.FallbackHeader))
		}
		if !ok {
			id = correlation.Generate()
		}
		ctx := correlation.Set(r.Context(), id)
		w.Header().Set(correlation.Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLogMiddleware logs one line per request.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		logger.From(r.Context()).Info("http request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// AuthMiddleware requires a valid bearer token and stores its subject as the
// current user.
func AuthMiddleware(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" && websocketUpgrade(r) {
				token = r.URL.Query().Get("token")
			}
			if strings.TrimSpace(token) == "" {
				errors.WriteError(w, r, errors.New(http.StatusUnauthorized, "Unauthorized", "JWT token required"))
				return
			}
			userID, err := tokens.Verify(token)
			if err != nil {
				errors.WriteError(w, r, errors.New(http.StatusUnauthorized, "Unauthorized", "Invalid JWT"))
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey{}, authContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUserID returns the authenticated user, or "".
func CurrentUserID(r *http.Request) string {
	if ac, ok := r.Context().Value(authContextKey{}).(authContext); ok {
		return ac.UserID
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// TimeoutMiddleware bounds the handler with http.TimeoutHandler.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = 30 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"type":"about:blank","title":"Gateway Timeout","status":504,"detail":"Request timed out"}`)
	}
}

func MaxBodySizeMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				errors.WriteError(w, r, errors.New(http.StatusRequestEntityTooLarge, "Payload Too Large", fmt.Sprintf("Request body too large (max %d bytes)", limit)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 problem.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.From(r.Context()).Error("panic in handler", "panic", p, "path", r.URL.Path)
				errors.WriteError(w, r, errors.New(http.StatusInternalServerError, "Internal Server Error", ""))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
