// Package cors answers preflight requests and stamps the allow headers on
// every response.
package cors

import (
	"net/http"

	"go.uber.org/zap"
)

type Middleware struct {
	logger       *zap.Logger
	allowOrigins map[string]struct{}
	allowAll     bool
}

func NewMiddleware(logger *zap.Logger, allowOrigins []string) *Middleware {
	m := &Middleware{
		logger:       logger,
		allowOrigins: make(map[string]struct{}, len(allowOrigins)),
	}
	for _, origin := range allowOrigins {
		if origin == "*" {
			m.allowAll = true
			continue
		}
		m.allowOrigins[origin] = struct{}{}
	}
	return m
}

func (m *Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && m.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Traceparent")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func (m *Middleware) allowed(origin string) bool {
	if m.allowAll {
		return true
	}
	_, ok := m.allowOrigins[origin]
	return ok
}
