// Package di provides dependency injection configuration for the NeuroVault server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/neurovault/neurovault-server/internal/config"
	"github.com/neurovault/neurovault-server/internal/di/providers"
	"github.com/neurovault/neurovault-server/internal/logger"
	"github.com/neurovault/neurovault-server/internal/scanner"
	"github.com/neurovault/neurovault-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)

	// Library layer
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideHousekeeper)

	// Business services
	do.Provide(injector, providers.ProvidePatientService)
	do.Provide(injector, providers.ProvideRecordingService)
	do.Provide(injector, providers.ProvideSegmentationService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideLibraryWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap triggers lazy initialization of every core service so startup
// failures surface immediately instead of on the first request.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)

	_ = do.MustInvoke[*scanner.Scanner](injector)
	_ = do.MustInvoke[*scanner.Housekeeper](injector)

	_ = do.MustInvoke[*service.PatientService](injector)
	_ = do.MustInvoke[*service.RecordingService](injector)
	_ = do.MustInvoke[*service.SegmentationService](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	_ = do.MustInvoke[*providers.LibraryWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
