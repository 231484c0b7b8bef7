package provision

import (
	"fmt"
	"sort"
	"strings"
)

const builderImage = "golang:1.24-bookworm"

// RenderDockerfile emits a Dockerfile equivalent of the image spec. The worker
// binary is built in a separate stage so the final image carries no Go
// toolchain.
func RenderDockerfile(spec ImageSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s AS builder\n", builderImage)
	b.WriteString("WORKDIR /src\n")
	b.WriteString("COPY go.mod go.sum ./\n")
	b.WriteString("RUN go mod download\n")
	b.WriteString("COPY . .\n")
	b.WriteString("RUN CGO_ENABLED=0 go build -o /out/worker ./cmd/worker\n")
	b.WriteString("\n")

	fmt.Fprintf(&b, "FROM %s\n", spec.BaseImage)
	b.WriteString("WORKDIR /app\n")

	if len(spec.OSPackages) > 0 {
		fmt.Fprintf(&b, "RUN apt-get update && apt-get install -y --no-install-recommends \\\n    %s \\\n    && rm -rf /var/lib/apt/lists/*\n",
			strings.Join(spec.OSPackages, " \\\n    "))
	}

	fmt.Fprintf(&b, "RUN git clone --depth 1 --branch %s %s %s\n",
		spec.ModelRepo.Ref, spec.ModelRepo.URL, spec.ModelRepo.Path)

	if len(spec.TorchPackages) > 0 {
		line := "RUN pip3 install --no-cache-dir " + strings.Join(spec.TorchPackages, " ")
		if spec.TorchIndexURL != "" {
			line += " --index-url " + spec.TorchIndexURL
		}
		b.WriteString(line + "\n")
	}

	for _, req := range spec.Requirements {
		fmt.Fprintf(&b, "RUN pip3 install --no-cache-dir -r %s/%s\n", spec.ModelRepo.Path, req)
	}

	for _, extra := range spec.Extras {
		b.WriteString("RUN " + extraInstallCmd(spec, extra) + "\n")
	}

	if len(spec.PlatformPackages) > 0 {
		fmt.Fprintf(&b, "RUN pip3 install --no-cache-dir %s\n", strings.Join(spec.PlatformPackages, " "))
	}

	fmt.Fprintf(&b, "ENV PYTHONPATH=%s\n", spec.ModelRepo.Path)
	for _, k := range sortedKeys(spec.Env) {
		fmt.Fprintf(&b, "ENV %s=%s\n", k, spec.Env[k])
	}

	fmt.Fprintf(&b, "COPY --from=builder /out/worker %s\n", spec.WorkerPath)

	if len(spec.Cmd) > 0 {
		fmt.Fprintf(&b, "CMD [%s]\n", quoteJoin(spec.Cmd))
	}

	return b.String()
}

// extraInstallCmd renders the shell command for one optional dependency set
// according to the image spec's extras policy.
func extraInstallCmd(spec ImageSpec, extra Extra) string {
	reqPath := spec.ModelRepo.Path + "/" + extra.Requirements
	switch spec.ExtrasPolicy {
	case ExtrasRequire:
		return fmt.Sprintf("pip3 install --no-cache-dir -r %s", reqPath)
	case ExtrasExplicit:
		return fmt.Sprintf("pip3 install --no-cache-dir %s", strings.Join(extra.Packages, " "))
	default:
		return fmt.Sprintf("pip3 install --no-cache-dir -r %s || echo \"%s requirements not found, skipping\"",
			reqPath, extra.Name)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteJoin(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return strings.Join(quoted, ", ")
}
