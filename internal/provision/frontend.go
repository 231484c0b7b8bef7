package provision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/exporter/containerimage/exptypes"
	"github.com/moby/buildkit/frontend/gateway/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	defaultPlatformOS   = "linux"
	defaultPlatformArch = "amd64"
)

// Build is the BuildKit gateway entrypoint. The image spec arrives either
// inline through the "spec" build arg (YAML) or falls back to the defaults.
func Build(ctx context.Context, c client.Client) (*client.Result, error) {
	opts := c.BuildOpts().Opts

	spec := DefaultSpec()
	if raw := getBuildArg(opts, "spec"); raw != "" {
		var err error
		spec, err = Parse([]byte(raw))
		if err != nil {
			return nil, err
		}
	}
	if policy := getBuildArg(opts, "extras_policy"); policy != "" {
		spec.ExtrasPolicy = ExtrasPolicy(policy)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	platform := &ocispec.Platform{OS: defaultPlatformOS, Architecture: defaultPlatformArch}

	state, imageCfg, err := Compile(spec, platform)
	if err != nil {
		return nil, err
	}

	def, err := state.Marshal(ctx, llb.WithCustomName("worker image"))
	if err != nil {
		return nil, fmt.Errorf("provision: marshal llb: %w", err)
	}

	resSolve, err := c.Solve(ctx, client.SolveRequest{Definition: def.ToPB()})
	if err != nil {
		return nil, fmt.Errorf("provision: solve: %w", err)
	}

	ref, err := resSolve.SingleRef()
	if err != nil {
		return nil, fmt.Errorf("provision: result reference: %w", err)
	}

	cfgBytes, err := json.Marshal(imageCfg)
	if err != nil {
		return nil, fmt.Errorf("provision: marshal image config: %w", err)
	}

	out := client.NewResult()
	out.AddMeta(exptypes.ExporterImageConfigKey, cfgBytes)
	out.SetRef(ref)
	return out, nil
}

func getBuildArg(opts map[string]string, k string) string {
	if opts != nil {
		if v, ok := opts["build-arg:"+k]; ok {
			return v
		}
	}
	return ""
}
