// Package di provides dependency injection configuration for the memopack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/memopack/internal/blobstore"
	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/di/providers"
	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/logger"
	"github.com/listenupapp/memopack/internal/metrics"
	"github.com/listenupapp/memopack/internal/ratelimit"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage and sessions
	do.Provide(injector, providers.ProvideBlobStore)
	do.Provide(injector, providers.ProvideSessionRegistry)

	// Export
	do.Provide(injector, providers.ProvideAssembler)
	do.Provide(injector, providers.ProvideExportLimiter)

	// Workers
	do.Provide(injector, providers.ProvideSessionSweeperJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)

	if _, err := do.Invoke[*blobstore.Store](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*collector.Registry](injector)
	_ = do.MustInvoke[*export.Assembler](injector)
	_ = do.MustInvoke[*ratelimit.KeyedRateLimiter](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionSweeperJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
