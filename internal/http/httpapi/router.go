package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wanworker/internal/http/handlers"
	mw "wanworker/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(logger),
	)

	r.Get("/health", app.Health)
	r.Get("/ping", app.Ping)

	r.Post("/run", app.Run)
	r.Post("/runsync", app.RunSync)
	r.Get("/status/{job_id}", app.Status)

	return r
}
