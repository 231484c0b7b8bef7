// Command provision renders the worker image definition. It emits a
// Dockerfile by default so the image can be built without the custom
// BuildKit frontend.
package main

import (
	"flag"
	"fmt"
	"os"

	"wanworker/internal/provision"
)

func main() {
	var (
		specPath = flag.String("spec", "", "path to a YAML image spec (defaults apply when empty)")
		policy   = flag.String("extras-policy", "", "override extras policy: skip-missing, require, or explicit")
		outPath  = flag.String("o", "", "write the Dockerfile to this path instead of stdout")
	)
	flag.Parse()

	spec := provision.DefaultSpec()
	if *specPath != "" {
		var err error
		spec, err = provision.Load(*specPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *policy != "" {
		spec.ExtrasPolicy = provision.ExtrasPolicy(*policy)
		if err := spec.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	dockerfile := provision.RenderDockerfile(spec)

	if *outPath == "" {
		fmt.Print(dockerfile)
		return
	}
	if err := os.WriteFile(*outPath, []byte(dockerfile), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
