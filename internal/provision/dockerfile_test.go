package provision

import (
	"strings"
	"testing"
)

func TestRenderDockerfileSkipMissing(t *testing.T) {
	spec := DefaultSpec()
	spec.ExtrasPolicy = ExtrasSkipMissing

	out := RenderDockerfile(spec)

	if !strings.Contains(out, "FROM nvidia/cuda:12.1.1-cudnn8-runtime-ubuntu22.04") {
		t.Error("missing CUDA base image")
	}
	if !strings.Contains(out, "git clone --depth 1 --branch main https://github.com/Wan-Video/Wan2.2.git /app/Wan2.2") {
		t.Error("missing model repo clone")
	}
	if !strings.Contains(out, "--index-url https://download.pytorch.org/whl/cu121") {
		t.Error("torch install missing index url")
	}
	if !strings.Contains(out, `-r /app/Wan2.2/requirements_s2v.txt || echo "s2v requirements not found, skipping"`) {
		t.Errorf("s2v extra should tolerate a missing file:\n%s", out)
	}
	if !strings.Contains(out, "ENV PYTHONPATH=/app/Wan2.2") {
		t.Error("missing PYTHONPATH")
	}
	if !strings.Contains(out, `CMD ["/usr/local/bin/worker"]`) {
		t.Error("missing CMD")
	}
}

func TestRenderDockerfileRequire(t *testing.T) {
	spec := DefaultSpec()
	spec.ExtrasPolicy = ExtrasRequire

	out := RenderDockerfile(spec)

	if !strings.Contains(out, "RUN pip3 install --no-cache-dir -r /app/Wan2.2/requirements_s2v.txt\n") {
		t.Errorf("require policy should install the file unconditionally:\n%s", out)
	}
	if strings.Contains(out, "|| echo") {
		t.Error("require policy must not tolerate missing files")
	}
}

func TestRenderDockerfileExplicit(t *testing.T) {
	spec := DefaultSpec()
	spec.ExtrasPolicy = ExtrasExplicit

	out := RenderDockerfile(spec)

	if !strings.Contains(out, "RUN pip3 install --no-cache-dir librosa soundfile av\n") {
		t.Errorf("explicit policy should enumerate packages:\n%s", out)
	}
	if strings.Contains(out, "requirements_s2v.txt") {
		t.Error("explicit policy must not reference the requirements file")
	}
}

func TestRenderDockerfileBuildsWorkerStage(t *testing.T) {
	out := RenderDockerfile(DefaultSpec())

	if !strings.Contains(out, "FROM golang:1.24-bookworm AS builder") {
		t.Error("missing builder stage")
	}
	if !strings.Contains(out, "go build -o /out/worker ./cmd/worker") {
		t.Error("missing worker build step")
	}
	if !strings.Contains(out, "COPY --from=builder /out/worker /usr/local/bin/worker") {
		t.Error("missing worker copy into final stage")
	}
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	spec := DefaultSpec()
	spec.ExtrasPolicy = "maybe"
	if err := spec.Validate(); err == nil {
		t.Fatal("expected error for unknown extras policy")
	}
}

func TestValidateExplicitNeedsPackages(t *testing.T) {
	spec := DefaultSpec()
	spec.ExtrasPolicy = ExtrasExplicit
	spec.Extras = []Extra{{Name: "s2v", Requirements: "requirements_s2v.txt"}}
	if err := spec.Validate(); err == nil {
		t.Fatal("expected error for explicit policy without package list")
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	spec, err := Parse([]byte(`
base_image: nvidia/cuda:12.4.1-cudnn-runtime-ubuntu22.04
extras_policy: require
model_repo:
  url: https://example.com/fork.git
  ref: v1.2
  path: /app/Wan2.2
`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if spec.BaseImage != "nvidia/cuda:12.4.1-cudnn-runtime-ubuntu22.04" {
		t.Errorf("base image not overridden: %s", spec.BaseImage)
	}
	if spec.ExtrasPolicy != ExtrasRequire {
		t.Errorf("extras policy not overridden: %s", spec.ExtrasPolicy)
	}
	if spec.ModelRepo.Ref != "v1.2" {
		t.Errorf("model repo ref not overridden: %s", spec.ModelRepo.Ref)
	}
	// untouched fields keep their defaults
	if len(spec.TorchPackages) == 0 {
		t.Error("torch packages should keep defaults")
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("base_image: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
