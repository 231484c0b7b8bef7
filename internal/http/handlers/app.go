// Package handlers implements the local test API: the same run/status
// surface the hosted queue exposes, backed by an in-memory store, so the
// handler can be exercised without deploying an endpoint.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"wanworker/internal/handler"
	"wanworker/internal/infra"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Handler    *handler.Handler
	Jobs       *JobStore
	JobTimeout time.Duration
	Logger     infra.Logger
}

// NewApp constructs the handler container.
func NewApp(h *handler.Handler, jobTimeout time.Duration, logger infra.Logger) *App {
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &App{
		Handler:    h,
		Jobs:       NewJobStore(),
		JobTimeout: jobTimeout,
		Logger:     logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
