package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wanworker/internal/domain"
)

type runRequest struct {
	Input domain.JobInput `json:"input"`
}

type statusResponse struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Output *domain.JobOutput `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// RunSync executes a job inline and holds the connection until it finishes,
// mirroring the hosted /runsync endpoint.
func (a *App) RunSync(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	rec := a.Jobs.Create(req.Input)
	a.Jobs.SetRunning(rec.ID)

	ctx, cancel := context.WithTimeout(r.Context(), a.JobTimeout)
	defer cancel()

	output, err := a.Handler.Handle(ctx, rec.ID, req.Input)
	if err != nil {
		a.Jobs.SetFailed(rec.ID, err.Error())
		a.json(w, http.StatusOK, statusResponse{ID: rec.ID, Status: StatusFailed, Error: err.Error()})
		return
	}
	a.Jobs.SetCompleted(rec.ID, output)
	a.json(w, http.StatusOK, statusResponse{ID: rec.ID, Status: StatusCompleted, Output: output})
}

// Run accepts a job and executes it in the background, mirroring the hosted
// /run endpoint. Generation stays serialized GPU-side by the handler being
// invoked one job at a time in practice; the local API does not enforce it.
func (a *App) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	rec := a.Jobs.Create(req.Input)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.JobTimeout)
		defer cancel()
		a.Jobs.SetRunning(rec.ID)
		output, err := a.Handler.Handle(ctx, rec.ID, rec.Input)
		if err != nil {
			a.Logger.Error().Err(err).Str("job_id", rec.ID).Msg("local job failed")
			a.Jobs.SetFailed(rec.ID, err.Error())
			return
		}
		a.Jobs.SetCompleted(rec.ID, output)
	}()

	a.json(w, http.StatusAccepted, statusResponse{ID: rec.ID, Status: StatusInQueue})
}

// Status reports the state of a locally submitted job.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	rec, ok := a.Jobs.Get(jobID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, statusResponse{
		ID:     rec.ID,
		Status: rec.Status,
		Output: rec.Output,
		Error:  rec.Error,
	})
}
