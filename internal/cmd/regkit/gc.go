package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	"github.com/octohelm/regkit/pkg/content/coordinator"
	"github.com/octohelm/regkit/pkg/content/fs/garbagecollector"
)

func init() {
	c := cli.AddTo(App, &GC{})
	c.LogFormat = "text"
}

// Collect unreferenced manifests and blobs
type GC struct {
	cli.C
	otel.Otel

	coordinator.Coordinator

	garbagecollector.Executor
}
