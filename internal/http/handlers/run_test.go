package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wanworker/internal/handler"
	"wanworker/internal/http/handlers"
	"wanworker/internal/http/httpapi"
	"wanworker/internal/media"
	"wanworker/internal/wan"
)

type stubGenerator struct {
	dir string
	err error
}

func (s *stubGenerator) Generate(ctx context.Context, req wan.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	path := filepath.Join(s.dir, "out.mp4")
	if err := os.WriteFile(path, []byte("fake-mp4"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func newTestServer(t *testing.T, gen wan.Generator) (*httptest.Server, *handlers.App) {
	t.Helper()
	h := handler.New(handler.Options{
		Generator: gen,
		Probe: func(ctx context.Context, path string) (media.StreamInfo, error) {
			return media.StreamInfo{}, errors.New("no ffprobe in tests")
		},
		TempDir: t.TempDir(),
		Logger:  zerolog.Nop(),
	})
	app := handlers.NewApp(h, time.Minute, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewRouter(app, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, app
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRunSyncCompletes(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp := postJSON(t, srv.URL+"/runsync", `{"input":{"task":"t2v","prompt":"a red fox"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var got struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Output *struct {
			Video string `json:"video"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != handlers.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %q", got.Status)
	}
	if got.Output == nil || !strings.HasPrefix(got.Output.Video, "data:video/mp4;base64,") {
		t.Fatalf("output missing data URI video: %+v", got.Output)
	}
	if got.ID == "" {
		t.Fatal("response missing job id")
	}
}

func TestRunSyncReportsValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp := postJSON(t, srv.URL+"/runsync", `{"input":{"task":"i2v"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var got struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != handlers.StatusFailed {
		t.Fatalf("expected FAILED, got %q", got.Status)
	}
	if !strings.Contains(got.Error, "image") {
		t.Fatalf("error should mention the missing image: %q", got.Error)
	}
}

func TestRunThenStatus(t *testing.T) {
	srv, app := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp := postJSON(t, srv.URL+"/run", `{"input":{"task":"t2v","prompt":"a harbor at dawn"}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var accepted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.Status != handlers.StatusInQueue {
		t.Fatalf("expected IN_QUEUE, got %q", accepted.Status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, ok := app.Jobs.Get(accepted.ID)
		if ok && (rec.Status == handlers.StatusCompleted || rec.Status == handlers.StatusFailed) {
			if rec.Status != handlers.StatusCompleted {
				t.Fatalf("job failed: %s", rec.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	statusResp, err := http.Get(srv.URL + "/status/" + accepted.ID)
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer statusResp.Body.Close()
	var status struct {
		Status string `json:"status"`
		Output *struct {
			Video string `json:"video"`
		} `json:"output"`
	}
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != handlers.StatusCompleted || status.Output == nil {
		t.Fatalf("status mismatch: %+v", status)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp, err := http.Get(srv.URL + "/status/no-such-job")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRunRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp := postJSON(t, srv.URL+"/run", `{"input":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubGenerator{dir: t.TempDir()})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}
