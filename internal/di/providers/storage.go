package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/memopack/internal/blobstore"
	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/logger"
	"github.com/listenupapp/memopack/internal/metrics"
)

// ProvideBlobStore provides the in-memory attachment store.
func ProvideBlobStore(i do.Injector) (*blobstore.Store, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return blobstore.New(log.Logger)
}

// ProvideMetrics provides the Prometheus instruments.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// ProvideSessionRegistry provides the registry of browser sessions.
func ProvideSessionRegistry(i do.Injector) (*collector.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	blobs := do.MustInvoke[*blobstore.Store](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return collector.NewRegistry(blobs, log.Logger,
		collector.WithIdleTTL(cfg.Session.IdleTTL),
		collector.WithSessionCounter(m.SetSessionsActive),
	), nil
}
