package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"wanworker/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    srv.URL,
		EndpointID: "ep123",
		APIKey:     "secret",
		WorkerID:   "w1",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestTakeJobEmptyQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/ep123/job-take/w1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).TakeJob(context.Background())
	if !errors.Is(err, ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}
}

func TestTakeJobDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "job-9",
			"input": map[string]any{
				"task":   "t2v",
				"prompt": "a fox",
				"width":  854,
				"height": 480,
			},
		})
	}))
	defer srv.Close()

	job, err := newTestClient(t, srv).TakeJob(context.Background())
	if err != nil {
		t.Fatalf("TakeJob returned error: %v", err)
	}
	if job.ID != "job-9" {
		t.Fatalf("job id mismatch: %q", job.ID)
	}
	if job.Input.Task != domain.TaskTextToVideo || job.Input.Width != 854 {
		t.Fatalf("input mismatch: %+v", job.Input)
	}
}

func TestTakeJobSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).TakeJob(context.Background())
	if err == nil || errors.Is(err, ErrNoJob) {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestJobDonePostsEnvelope(t *testing.T) {
	var got JobResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v2/ep123/job-done/w1/job-9" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := JobResult{Output: &domain.JobOutput{
		Video: "data:video/mp4;base64,AAAA",
		Info:  domain.JobInfo{Task: domain.TaskTextToVideo, Resolution: "854x480"},
	}}
	if err := newTestClient(t, srv).JobDone(context.Background(), "job-9", result); err != nil {
		t.Fatalf("JobDone returned error: %v", err)
	}
	if got.Output == nil || got.Output.Info.Resolution != "854x480" {
		t.Fatalf("output envelope mismatch: %+v", got)
	}
	if got.Error != "" {
		t.Fatalf("error should be empty on success: %q", got.Error)
	}
}

func TestJobDoneErrorEnvelope(t *testing.T) {
	var got JobResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).JobDone(context.Background(), "job-9", JobResult{Error: "generation failed: OOM"})
	if err != nil {
		t.Fatalf("JobDone returned error: %v", err)
	}
	if got.Error != "generation failed: OOM" || got.Output != nil {
		t.Fatalf("error envelope mismatch: %+v", got)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{EndpointID: "ep"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing endpoint id")
	}
}
