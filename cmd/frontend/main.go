// Command frontend is the BuildKit gateway frontend that compiles the worker
// image spec straight to LLB, skipping the Dockerfile path entirely:
//
//	docker buildx build --build-arg BUILDKIT_SYNTAX=<this image> .
package main

import (
	"os"

	"github.com/moby/buildkit/frontend/gateway/grpcclient"
	"github.com/moby/buildkit/util/appcontext"
	"github.com/rs/zerolog"

	"wanworker/internal/provision"
)

func main() {
	if err := grpcclient.RunFromEnvironment(appcontext.Context(), provision.Build); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("frontend: fatal error")
	}
}
