package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/logger"
)

// SessionSweeperJob periodically ends idle sessions.
type SessionSweeperJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SessionSweeperJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSessionSweeperJob provides the idle session sweeper.
func ProvideSessionSweeperJob(i do.Injector) (*SessionSweeperJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*collector.Registry](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		registry.RunSweeper(ctx, cfg.Session.SweepInterval)
	}()

	log.Info("Session sweeper started",
		"interval", cfg.Session.SweepInterval,
		"idle_ttl", cfg.Session.IdleTTL,
	)

	return &SessionSweeperJob{cancel: cancel, done: done}, nil
}
