// Package platform speaks the serverless queue protocol the worker is
// invoked through: take one job, run it, report the result. The queue,
// scaling and retry policy all live on the platform side; this client only
// consumes the contract.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wanworker/internal/domain"
)

// ErrNoJob indicates the queue had nothing for this worker.
var ErrNoJob = errors.New("platform: no job available")

// ErrMissingCredentials indicates the client was configured without an API key.
var ErrMissingCredentials = errors.New("platform: api key is required")

// Job is one unit of work delivered by the queue.
type Job struct {
	ID    string          `json:"id"`
	Input domain.JobInput `json:"input"`
}

// JobResult is the completion envelope posted back to the queue. Exactly one
// of Output and Error is set.
type JobResult struct {
	Output *domain.JobOutput `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	EndpointID string
	APIKey     string
	WorkerID   string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client performs HTTP calls against the platform's worker-facing endpoints.
type Client struct {
	baseURL    string
	endpointID string
	apiKey     string
	workerID   string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingCredentials
	}
	if strings.TrimSpace(opts.EndpointID) == "" {
		return nil, errors.New("platform: endpoint id is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.runpod.ai"
	}
	workerID := strings.TrimSpace(opts.WorkerID)
	if workerID == "" {
		workerID = "local"
	}
	var logger *zerolog.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		baseURL:    baseURL,
		endpointID: strings.TrimSpace(opts.EndpointID),
		apiKey:     strings.TrimSpace(opts.APIKey),
		workerID:   workerID,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// TakeJob asks the queue for the next job. A 204 (or 404) means the queue is
// empty and maps to ErrNoJob.
func (c *Client) TakeJob(ctx context.Context) (*Job, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/job-take/%s", c.baseURL, c.endpointID, c.workerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: build job-take request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: job-take: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return nil, ErrNoJob
	case http.StatusOK:
	default:
		return nil, c.statusError("job-take", resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("platform: decode job: %w", err)
	}
	if job.ID == "" {
		return nil, errors.New("platform: job without id")
	}
	return &job, nil
}

// JobDone reports a finished job back to the queue.
func (c *Client) JobDone(ctx context.Context, jobID string, result JobResult) error {
	endpoint := fmt.Sprintf("%s/v2/%s/job-done/%s/%s", c.baseURL, c.endpointID, c.workerID, jobID)
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("platform: encode result: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("platform: build job-done request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: job-done: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.statusError("job-done", resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var detail struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if msg := firstNonEmpty(detail.Error, detail.Message); msg != "" {
			return fmt.Errorf("platform: %s: status %d: %s", op, resp.StatusCode, msg)
		}
	}
	return fmt.Errorf("platform: %s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(raw)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
