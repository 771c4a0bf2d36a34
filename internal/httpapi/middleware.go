package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-timeoff/internal/metrics"
	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/auth"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

type ctxKey struct{}

// actorFrom returns the authenticated caller stored by authenticate.
func actorFrom(ctx context.Context) (workflow.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(workflow.Actor)
	return actor, ok
}

func withActor(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, workflow.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		ManagerID: claims.ManagerID,
	})
}

// authenticate requires a valid bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, api.BearerPrefix) {
			s.writeErrorResponse(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := s.issuer.Verify(strings.TrimPrefix(header, api.BearerPrefix))
		if err != nil {
			s.logger.Debug("token rejected", logger.Err(err))
			s.writeErrorResponse(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe records metrics and a debug log line per request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)
		s.logger.Debug("http request",
			logger.Field{Key: "method", Value: r.Method},
			logger.Field{Key: "route", Value: route},
			logger.Field{Key: "status", Value: rec.status},
			logger.Field{Key: "elapsed", Value: elapsed.String()},
		)
	})
}
