package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	"github.com/octohelm/mirrorkit/pkg/mirror"
)

func init() {
	c := cli.AddTo(App, &Sync{})
	c.LogFormat = "text"
}

// Mirror the configured repositories once
type Sync struct {
	cli.C `name:"sync"`
	otel.Otel

	mirror.Mirror
}
