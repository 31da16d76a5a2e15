package main

import (
	"context"

	"github.com/go-courier/logr"
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"

	"github.com/octohelm/mirrorkit/pkg/cron"
	"github.com/octohelm/mirrorkit/pkg/mirror"
)

func init() {
	cli.AddTo(Serve, &SyncScheduler{})
}

// Mirror the configured repositories on a schedule
type SyncScheduler struct {
	cli.C `component:"mirror-sync"`
	otel.Otel

	mirror.Mirror

	Job cron.Job
}

func (s *SyncScheduler) Init(ctx context.Context) error {
	s.Job.ApplyAction("sync", func(ctx context.Context) {
		if err := s.SyncAll(ctx); err != nil {
			logr.FromContext(ctx).Error(err)
		}
	})
	return nil
}
