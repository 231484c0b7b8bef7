package wan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"wanworker/internal/domain"
)

// Ensurer makes sure the generation repository and the requested checkpoint
// are present before a job runs. Weights normally arrive out of band on the
// network volume; downloading is a fallback for fresh volumes.
type Ensurer struct {
	repoURL      string
	repoPath     string
	volumePath   string
	autoDownload bool
	logger       zerolog.Logger
}

// EnsurerOptions configures an Ensurer.
type EnsurerOptions struct {
	RepoURL      string
	RepoPath     string
	VolumePath   string
	AutoDownload bool
	Logger       zerolog.Logger
}

// NewEnsurer constructs an Ensurer.
func NewEnsurer(opts EnsurerOptions) *Ensurer {
	return &Ensurer{
		repoURL:      opts.RepoURL,
		repoPath:     opts.RepoPath,
		volumePath:   opts.VolumePath,
		autoDownload: opts.AutoDownload,
		logger:       opts.Logger,
	}
}

// EnsureRepo clones the generation repository if it is missing. The image
// normally bakes it in; this covers volumes reused across image versions.
func (e *Ensurer) EnsureRepo(ctx context.Context) error {
	script := filepath.Join(e.repoPath, "generate.py")
	if _, err := os.Stat(script); err == nil {
		return nil
	}
	e.logger.Warn().Str("path", e.repoPath).Msg("wan: generation repo missing, cloning")
	if err := runQuiet(ctx, "git", "clone", "--depth", "1", e.repoURL, e.repoPath); err != nil {
		return fmt.Errorf("wan: clone %s: %w", e.repoURL, err)
	}
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("wan: generate.py missing after clone: %w", err)
	}
	return nil
}

// EnsureWeights verifies the checkpoint directory exists, downloading it from
// Hugging Face when auto download is enabled.
func (e *Ensurer) EnsureWeights(ctx context.Context, v Variant) error {
	path := v.WeightsPath(e.volumePath)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}
	if !e.autoDownload {
		return fmt.Errorf("%w: %s (expected at %s)", domain.ErrModelNotFound, v.Name, path)
	}
	e.logger.Info().Str("model", v.Name).Str("path", path).Msg("wan: downloading weights")
	if err := runQuiet(ctx, "huggingface-cli", "download", v.HFRepo, "--local-dir", path); err != nil {
		return fmt.Errorf("wan: download %s: %w", v.HFRepo, err)
	}
	return nil
}

func runQuiet(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, tail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
