package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/memopack/internal/api"
	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/logger"
	"github.com/listenupapp/memopack/internal/metrics"
	"github.com/listenupapp/memopack/internal/ratelimit"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := api.NewServer(api.Deps{
		Config:        cfg,
		Registry:      do.MustInvoke[*collector.Registry](i),
		Assembler:     do.MustInvoke[*export.Assembler](i),
		Metrics:       do.MustInvoke[*metrics.Metrics](i),
		ExportLimiter: do.MustInvoke[*ratelimit.KeyedRateLimiter](i),
		Logger:        log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
