package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/logger"
	"github.com/listenupapp/memopack/internal/metrics"
	"github.com/listenupapp/memopack/internal/ratelimit"
)

// ProvideAssembler provides the archive assembler.
func ProvideAssembler(i do.Injector) (*export.Assembler, error) {
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return export.New(log.Logger, export.WithRecorder(m)), nil
}

// ProvideExportLimiter provides the per-client limiter for export routes.
func ProvideExportLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.PerInterval(cfg.Export.RatePerMinute, time.Minute, cfg.Export.Burst), nil
}
