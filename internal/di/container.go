// Package di provides dependency injection configuration for the
// BookHaven server.
package di

import (
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/di/providers"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSessionKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCartStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Outbound mail
	do.Provide(injector, providers.ProvideMailer)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideCartService)
	do.Provide(injector, providers.ProvideOrderService)
	do.Provide(injector, providers.ProvideReviewService)
	do.Provide(injector, providers.ProvideAdminService)

	// HTTP layer
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap eagerly constructs the server stack and starts serving.
func Bootstrap(injector do.Injector) error {
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}

	serverHandle, err := do.Invoke[*providers.HTTPServerHandle](injector)
	if err != nil {
		return err
	}

	// First boot and mapping upgrades start with an empty search index.
	providers.WarmSearchIndex(injector)

	go func() {
		log.Info("HTTP server listening", "addr", serverHandle.Addr)
		if err := serverHandle.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", "error", err)
		}
	}()

	return nil
}
