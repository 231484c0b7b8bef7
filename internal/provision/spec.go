// Package provision describes the worker container image and renders it,
// either as a Dockerfile or as a BuildKit LLB graph. The image bundles the
// CUDA runtime, the cloned generation repo with its Python dependencies, and
// the worker binary.
package provision

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExtrasPolicy selects how optional dependency sets are installed.
type ExtrasPolicy string

const (
	// ExtrasSkipMissing installs each extra's requirements file if present
	// and prints a notice otherwise. The build never fails on a missing file.
	ExtrasSkipMissing ExtrasPolicy = "skip-missing"
	// ExtrasRequire installs each extra's requirements file unconditionally;
	// a missing file fails the build.
	ExtrasRequire ExtrasPolicy = "require"
	// ExtrasExplicit ignores the requirements files and installs each
	// extra's enumerated package list instead.
	ExtrasExplicit ExtrasPolicy = "explicit"
)

// Extra is an optional dependency set shipped with the generation repo.
type Extra struct {
	Name string `yaml:"name"`
	// Requirements is the file path inside the cloned repo.
	Requirements string `yaml:"requirements"`
	// Packages is the explicit pip package list used under ExtrasExplicit.
	Packages []string `yaml:"packages"`
}

// ModelRepo identifies the generation repository cloned into the image.
type ModelRepo struct {
	URL  string `yaml:"url"`
	Ref  string `yaml:"ref"`
	Path string `yaml:"path"`
}

// ImageSpec is the full description of the worker image.
type ImageSpec struct {
	BaseImage  string    `yaml:"base_image"`
	OSPackages []string  `yaml:"os_packages"`
	ModelRepo  ModelRepo `yaml:"model_repo"`

	TorchPackages []string `yaml:"torch_packages"`
	TorchIndexURL string   `yaml:"torch_index_url"`
	// Requirements lists the mandatory requirements files inside the repo.
	Requirements []string `yaml:"requirements"`
	// PlatformPackages are installed after the repo requirements (the
	// serverless SDK and the media probe tooling live here).
	PlatformPackages []string `yaml:"platform_packages"`

	Extras       []Extra      `yaml:"extras"`
	ExtrasPolicy ExtrasPolicy `yaml:"extras_policy"`

	Env        map[string]string `yaml:"env"`
	VolumePath string            `yaml:"volume_path"`
	WorkerPath string            `yaml:"worker_path"`
	Cmd        []string          `yaml:"cmd"`
}

// DefaultSpec returns the image spec the shipped worker is built from.
func DefaultSpec() ImageSpec {
	return ImageSpec{
		BaseImage: "nvidia/cuda:12.1.1-cudnn8-runtime-ubuntu22.04",
		OSPackages: []string{
			"git",
			"ffmpeg",
			"libgl1",
			"libglib2.0-0",
			"python3.10",
			"python3-pip",
			"python3.10-venv",
		},
		ModelRepo: ModelRepo{
			URL:  "https://github.com/Wan-Video/Wan2.2.git",
			Ref:  "main",
			Path: "/app/Wan2.2",
		},
		TorchPackages: []string{
			"torch==2.4.0",
			"torchvision==0.19.0",
		},
		TorchIndexURL: "https://download.pytorch.org/whl/cu121",
		Requirements:  []string{"requirements.txt"},
		PlatformPackages: []string{
			"runpod",
			"huggingface_hub[cli]",
		},
		Extras: []Extra{
			{
				Name:         "s2v",
				Requirements: "requirements_s2v.txt",
				Packages:     []string{"librosa", "soundfile", "av"},
			},
			{
				Name:         "animate",
				Requirements: "requirements_animate.txt",
				Packages:     []string{"onnxruntime-gpu", "pose-format"},
			},
		},
		ExtrasPolicy: ExtrasSkipMissing,
		Env: map[string]string{
			"PYTHONUNBUFFERED": "1",
		},
		VolumePath: "/runpod-volume",
		WorkerPath: "/usr/local/bin/worker",
		Cmd:        []string{"/usr/local/bin/worker"},
	}
}

// Load reads a YAML image spec from path and fills in defaults.
func Load(path string) (ImageSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageSpec{}, fmt.Errorf("provision: read spec: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML image spec and fills in defaults.
func Parse(data []byte) (ImageSpec, error) {
	spec := DefaultSpec()
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return ImageSpec{}, fmt.Errorf("provision: parse spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return ImageSpec{}, err
	}
	return spec, nil
}

// Validate rejects specs the renderers cannot express.
func (s ImageSpec) Validate() error {
	if s.BaseImage == "" {
		return fmt.Errorf("provision: base_image is required")
	}
	if s.ModelRepo.URL == "" || s.ModelRepo.Path == "" {
		return fmt.Errorf("provision: model_repo url and path are required")
	}
	switch s.ExtrasPolicy {
	case ExtrasSkipMissing, ExtrasRequire:
	case ExtrasExplicit:
		for _, e := range s.Extras {
			if len(e.Packages) == 0 {
				return fmt.Errorf("provision: extra %q has no package list for explicit policy", e.Name)
			}
		}
	default:
		return fmt.Errorf("provision: unknown extras policy %q", s.ExtrasPolicy)
	}
	return nil
}
