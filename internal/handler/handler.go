// Package handler translates a platform job payload into a generation run
// and the run's artifact back into the platform response shape. It owns
// validation and defaulting; everything model-side lives in internal/wan.
package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wanworker/internal/domain"
	"wanworker/internal/media"
	"wanworker/internal/storage"
	"wanworker/internal/wan"
	"wanworker/pkg/datauri"
)

// defaultFrames matches the generation script's own frame_num default so the
// response info stays truthful when the client does not pin a count.
const defaultFrames = 81

// ProbeFunc reads stream metadata from a clip. Injected so tests do not need
// ffprobe on PATH.
type ProbeFunc func(ctx context.Context, path string) (media.StreamInfo, error)

// Options configures a Handler.
type Options struct {
	Generator wan.Generator
	// Ensurer is optional; when set, missing repo/weights are provisioned
	// before the first run that needs them.
	Ensurer *wan.Ensurer
	// Store is optional; when set, a copy of each clip is archived.
	Store   *storage.FileStore
	Probe   ProbeFunc
	TempDir string
	Logger  zerolog.Logger
}

// Handler executes one job at a time; the platform serializes invocations
// per worker, so no internal locking is needed.
type Handler struct {
	gen      wan.Generator
	ensurer  *wan.Ensurer
	store    *storage.FileStore
	probe    ProbeFunc
	tempDir  string
	logger   zerolog.Logger
	validate *validator.Validate
}

// New constructs a Handler.
func New(opts Options) *Handler {
	probe := opts.Probe
	if probe == nil {
		probe = media.Probe
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Handler{
		gen:      opts.Generator,
		ensurer:  opts.Ensurer,
		store:    opts.Store,
		probe:    probe,
		tempDir:  tempDir,
		logger:   opts.Logger,
		validate: validator.New(),
	}
}

// Handle runs a single job. jobID is only used for logging and archive keys;
// an empty one is replaced with a fresh id.
func (h *Handler) Handle(ctx context.Context, jobID string, in domain.JobInput) (*domain.JobOutput, error) {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	logger := h.logger.With().Str("job_id", jobID).Logger()

	variant, err := h.validateInput(in)
	if err != nil {
		return nil, err
	}

	if h.ensurer != nil {
		if err := h.ensurer.EnsureRepo(ctx); err != nil {
			return nil, err
		}
		if err := h.ensurer.EnsureWeights(ctx, variant); err != nil {
			return nil, err
		}
	}

	size := variant.DefaultSize
	if in.Width > 0 {
		size = wan.Size{Width: in.Width, Height: in.Height}
	}
	frames := in.NumFrames
	if frames == 0 {
		frames = defaultFrames
	}

	req := wan.Request{
		Task:     in.Task,
		Variant:  variant,
		Size:     size,
		Prompt:   in.Prompt,
		Frames:   frames,
		Steps:    in.Steps,
		Guidance: in.GuidanceScale,
		Seed:     in.Seed,
	}

	if in.ImageBase64 != "" {
		imagePath, err := h.saveTempImage(jobID, in.ImageBase64)
		if err != nil {
			return nil, err
		}
		defer os.Remove(imagePath)
		req.ImagePath = imagePath
	}

	logger.Info().
		Str("task", string(in.Task)).
		Str("model", variant.Name).
		Str("resolution", size.String()).
		Int("frames", frames).
		Msg("handler: job accepted")

	videoPath, err := h.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	defer os.Remove(videoPath)

	data, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("handler: read output video: %w", err)
	}

	info := domain.JobInfo{
		Task:       in.Task,
		Model:      variant.Name,
		Resolution: size.String(),
		Frames:     frames,
		FPS:        variant.FPS,
	}
	if probed, err := h.probe(ctx, videoPath); err == nil {
		if probed.Frames > 0 {
			info.Frames = probed.Frames
		}
		if probed.FPS > 0 {
			info.FPS = probed.FPS
		}
	} else {
		logger.Debug().Err(err).Msg("handler: probe failed, using requested values")
	}

	if h.store != nil {
		key := jobID + ".mp4"
		if archived, err := h.store.ArchiveFile(ctx, key, videoPath); err != nil {
			logger.Warn().Err(err).Msg("handler: archive failed")
		} else {
			logger.Debug().Str("key", archived).Msg("handler: clip archived")
		}
	}

	logger.Info().Int("bytes", len(data)).Msg("handler: job completed")

	return &domain.JobOutput{
		Video: datauri.EncodeMP4(data),
		Info:  info,
	}, nil
}

// validateInput applies struct tags plus the cross-field rules the tags
// cannot express, and resolves the model variant.
func (h *Handler) validateInput(in domain.JobInput) (wan.Variant, error) {
	if !in.Task.Valid() {
		if in.Task == "" {
			return wan.Variant{}, fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
		}
		return wan.Variant{}, fmt.Errorf("%w: %q", domain.ErrUnknownTask, in.Task)
	}
	if err := h.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return wan.Variant{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, verrs[0])
		}
		return wan.Variant{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if (in.Width > 0) != (in.Height > 0) {
		return wan.Variant{}, fmt.Errorf("%w: width and height must be provided together", domain.ErrInvalidInput)
	}
	if in.Task.NeedsPrompt() && in.Prompt == "" {
		return wan.Variant{}, fmt.Errorf("%w for task %s", domain.ErrPromptRequired, in.Task)
	}
	if in.Task.NeedsImage() && in.ImageBase64 == "" {
		return wan.Variant{}, fmt.Errorf("%w for task %s", domain.ErrImageRequired, in.Task)
	}
	if !in.Task.NeedsImage() && in.ImageBase64 != "" {
		return wan.Variant{}, domain.ErrImageNotAccepted
	}
	return wan.Resolve(in.Task, in.Model)
}

// saveTempImage writes the decoded conditioning image next to the job's
// other scratch files, mirroring how the payload reaches generate.py.
func (h *Handler) saveTempImage(jobID, payload string) (string, error) {
	data, err := datauri.DecodeImage(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	path := filepath.Join(h.tempDir, "cond-"+jobID+".jpg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("handler: write conditioning image: %w", err)
	}
	return path, nil
}
