package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	"github.com/octohelm/regkit/pkg/content/coordinator"
	"github.com/octohelm/regkit/pkg/content/fs/garbagecollector"
	"github.com/octohelm/regkit/pkg/content/fs/uploadpurger"
	"github.com/octohelm/regkit/pkg/registryhttp"
)

func init() {
	cli.AddTo(Serve, &Registry{})
}

// Registry cache coordinator
type Registry struct {
	cli.C `component:"registry"`
	otel.Otel

	coordinator.Coordinator

	garbagecollector.GarbageCollector
	uploadpurger.UploadPurger

	registryhttp.Server
}
