package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	testingx "github.com/octohelm/x/testing"
)

func TestJobInit(t *testing.T) {
	t.Run("defaults to weekly", func(t *testing.T) {
		j := &Job{}
		j.SetDefaults()
		testingx.Expect(t, j.Cron, testingx.Be("0 0 * * 1"))
		testingx.Expect(t, j.Init(context.Background()), testingx.Be[error](nil))
	})

	t.Run("interval wins over cron", func(t *testing.T) {
		j := &Job{Interval: time.Hour}
		j.SetDefaults()
		testingx.Expect(t, j.Init(context.Background()), testingx.Be[error](nil))

		now := time.Now()
		testingx.Expect(t, j.schedule.Next(now), testingx.Be(now.Add(time.Hour)))
	})

	t.Run("malformed cron fails", func(t *testing.T) {
		j := &Job{Cron: "not-a-cron"}
		testingx.Expect(t, j.Init(context.Background()) != nil, testingx.Be(true))
	})
}

func TestJob(t *testing.T) {
	job := &Job{Interval: 50 * time.Millisecond}
	job.SetDefaults()
	testingx.Expect(t, job.Init(context.Background()), testingx.Be[error](nil))

	t.Cleanup(func() {
		_ = job.Shutdown(context.Background())
	})

	v := int64(0)
	done := make(chan struct{})

	job.ApplyAction("test", func(ctx context.Context) {
		if atomic.AddInt64(&v, 1) == 5 {
			close(done)
		}
	})

	go func() {
		_ = job.Serve(context.Background())
	}()

	<-done
}
