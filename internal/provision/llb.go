package provision

import (
	"fmt"
	"strings"

	"github.com/moby/buildkit/client/llb"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func sh(cmd string) llb.RunOption {
	return llb.Args([]string{"sh", "-c", cmd})
}

func shf(format string, a ...any) llb.RunOption {
	return sh(fmt.Sprintf(format, a...))
}

// Compile turns the image spec into an LLB state plus the OCI image config
// the exporter needs. The graph mirrors the Dockerfile renderer: a Go stage
// produces the worker binary, everything else layers onto the CUDA base.
func Compile(spec ImageSpec, platform *ocispec.Platform) (llb.State, *ocispec.Image, error) {
	if err := spec.Validate(); err != nil {
		return llb.State{}, nil, err
	}

	state := llb.Image(spec.BaseImage, llb.Platform(*platform))
	savedState := state

	if len(spec.OSPackages) > 0 {
		state = state.Run(shf(
			"apt-get update && apt-get install -y --no-install-recommends %s && rm -rf /var/lib/apt/lists/*",
			strings.Join(spec.OSPackages, " ")),
			llb.WithCustomName("Installing OS packages"),
		).Root()
	}

	state = state.Run(shf("git clone --depth 1 --branch %s %s %s",
		spec.ModelRepo.Ref, spec.ModelRepo.URL, spec.ModelRepo.Path),
		llb.WithCustomName("Cloning "+spec.ModelRepo.URL),
	).Root()

	if len(spec.TorchPackages) > 0 {
		cmd := "pip3 install --no-cache-dir " + strings.Join(spec.TorchPackages, " ")
		if spec.TorchIndexURL != "" {
			cmd += " --index-url " + spec.TorchIndexURL
		}
		state = state.Run(sh(cmd), llb.WithCustomName("Installing torch stack")).Root()
	}

	for _, req := range spec.Requirements {
		state = state.Run(shf("pip3 install --no-cache-dir -r %s/%s", spec.ModelRepo.Path, req),
			llb.WithCustomName("Installing "+req),
		).Root()
	}

	for _, extra := range spec.Extras {
		state = state.Run(sh(extraInstallCmd(spec, extra)),
			llb.WithCustomName("Installing extra "+extra.Name),
		).Root()
	}

	if len(spec.PlatformPackages) > 0 {
		state = state.Run(shf("pip3 install --no-cache-dir %s", strings.Join(spec.PlatformPackages, " ")),
			llb.WithCustomName("Installing platform packages"),
		).Root()
	}

	worker := buildWorker(platform)
	state = state.File(
		llb.Copy(worker, "/out/worker", spec.WorkerPath),
		llb.WithCustomName("Copying worker binary"),
	)

	diff := llb.Diff(savedState, state)
	merged := llb.Merge([]llb.State{llb.Image(spec.BaseImage, llb.Platform(*platform)), diff})

	return merged, newImageConfig(spec, platform), nil
}

// buildWorker compiles the Go worker in a throwaway toolchain stage; only the
// static binary is copied out.
func buildWorker(platform *ocispec.Platform) llb.State {
	src := llb.Local("context", llb.WithCustomName("Loading build context"))
	return llb.Image(builderImage, llb.Platform(*platform)).
		Dir("/src").
		Run(
			sh("CGO_ENABLED=0 go build -o /out/worker ./cmd/worker"),
			llb.AddMount("/src", src, llb.Readonly),
			llb.WithCustomName("Building worker binary"),
		).Root()
}

func newImageConfig(spec ImageSpec, platform *ocispec.Platform) *ocispec.Image {
	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"PYTHONPATH=" + spec.ModelRepo.Path,
	}
	for _, k := range sortedKeys(spec.Env) {
		env = append(env, k+"="+spec.Env[k])
	}

	img := &ocispec.Image{}
	img.OS = platform.OS
	img.Architecture = platform.Architecture
	img.RootFS = ocispec.RootFS{Type: "layers"}
	img.Config = ocispec.ImageConfig{
		Env:        env,
		Cmd:        spec.Cmd,
		WorkingDir: "/app",
	}
	return img
}
