package wan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wanworker/internal/domain"
)

// Request carries everything a single generate.py run needs. The handler
// resolves defaults before building one.
type Request struct {
	Task      domain.Task
	Variant   Variant
	Size      Size
	Prompt    string
	ImagePath string
	Frames    int
	Steps     int
	Guidance  float64
	Seed      *int64
}

// Generator produces a video file for a request and returns its path.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Runner invokes the cloned repository's generate.py, exactly as the
// official docs do, and locates the resulting clip.
type Runner struct {
	python     string
	repoPath   string
	volumePath string
	outputDir  string
	logger     zerolog.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	PythonBin  string
	RepoPath   string
	VolumePath string
	OutputDir  string
	Logger     zerolog.Logger
}

// NewRunner constructs a Runner with defaults applied.
func NewRunner(opts RunnerOptions) *Runner {
	python := opts.PythonBin
	if python == "" {
		python = "python3"
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(opts.RepoPath, "outputs")
	}
	return &Runner{
		python:     python,
		repoPath:   opts.RepoPath,
		volumePath: opts.VolumePath,
		outputDir:  outputDir,
		logger:     opts.Logger,
	}
}

// BuildArgs assembles the generate.py argument list for a request. Kept as a
// method without side effects so the flag surface stays testable.
func (r *Runner) BuildArgs(req Request) []string {
	args := []string{
		filepath.Join(r.repoPath, "generate.py"),
		"--task", req.Variant.Name,
		"--size", req.Size.Arg(),
		"--ckpt_dir", req.Variant.WeightsPath(r.volumePath),
		"--offload_model", "True",
		"--convert_model_dtype",
	}
	if req.Variant.T5CPU {
		args = append(args, "--t5_cpu")
	}
	if req.Prompt != "" {
		args = append(args, "--prompt", req.Prompt)
	}
	if req.ImagePath != "" {
		args = append(args, "--image", req.ImagePath)
	}
	if req.Frames > 0 {
		args = append(args, "--frame_num", strconv.Itoa(req.Frames))
	}
	if req.Steps > 0 {
		args = append(args, "--sample_steps", strconv.Itoa(req.Steps))
	}
	if req.Guidance > 0 {
		args = append(args, "--sample_guide_scale", strconv.FormatFloat(req.Guidance, 'f', -1, 64))
	}
	if req.Seed != nil {
		args = append(args, "--base_seed", strconv.FormatInt(*req.Seed, 10))
	}
	return args
}

// Generate runs generate.py and returns the path of the newest MP4 it wrote.
func (r *Runner) Generate(ctx context.Context, req Request) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("wan: ensure output dir: %w", err)
	}

	args := r.BuildArgs(req)
	cmd := exec.CommandContext(ctx, r.python, args...)
	cmd.Dir = r.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.logger.Info().
		Str("task", req.Variant.Name).
		Str("size", req.Size.Arg()).
		Msg("wan: starting generation")
	r.logger.Debug().Strs("args", args).Msg("wan: generate.py invocation")

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w after %s", domain.ErrGenerationTimeout, time.Since(start).Round(time.Second))
	}
	if err != nil {
		tail := stderrTail(stderr.Bytes())
		if tail == "" {
			tail = "generate.py exited with an error"
		}
		return "", fmt.Errorf("%w: %s", domain.ErrGenerationFailed, tail)
	}

	r.logger.Info().Dur("elapsed", time.Since(start)).Msg("wan: generation completed")

	video, err := newestVideo(r.outputDir, start)
	if err != nil {
		return "", err
	}
	return video, nil
}

// newestVideo returns the most recently modified .mp4 under dir. The runner
// only trusts files written after the run started so stale outputs from an
// earlier job are never returned.
func newestVideo(dir string, since time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("wan: read output dir: %w", err)
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(since) {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, e.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", domain.ErrNoOutputVideo
	}
	return newest, nil
}

// stderrTail keeps the useful end of a failed run's stderr for the error
// envelope without shipping megabytes of tracebacks.
func stderrTail(out []byte) string {
	const limit = 2000
	s := strings.TrimSpace(string(out))
	if len(s) > limit {
		s = "…" + s[len(s)-limit:]
	}
	return s
}

var _ Generator = (*Runner)(nil)
