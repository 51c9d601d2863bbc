package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/neurovault/neurovault-server/internal/config"
	"github.com/neurovault/neurovault-server/internal/logger"
	"github.com/neurovault/neurovault-server/internal/scanner"
	"github.com/neurovault/neurovault-server/internal/service"
)

// ProvidePatientService provides the patient service.
func ProvidePatientService(i do.Injector) (*service.PatientService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewPatientService(storeHandle.Store, log.Logger), nil
}

// ProvideRecordingService provides the recording service.
func ProvideRecordingService(i do.Injector) (*service.RecordingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewRecordingService(storeHandle.Store, cfg.Scanner.ExcludeChannels, log.Logger), nil
}

// ProvideSegmentationService provides the segmentation service. Segment
// payload files live next to the catalog database under segments/.
func ProvideSegmentationService(i do.Injector) (*service.SegmentationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	payloadDir := filepath.Join(filepath.Dir(cfg.Database.Path), "segments")
	return service.NewSegmentationService(
		storeHandle.Store,
		cfg.Segmentation,
		cfg.Scanner.ExcludeChannels,
		payloadDir,
		log.Logger,
	), nil
}

// ProvideLibraryService provides the library maintenance service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sc := do.MustInvoke[*scanner.Scanner](i)
	hk := do.MustInvoke[*scanner.Housekeeper](i)
	seg := do.MustInvoke[*service.SegmentationService](i)

	return service.NewLibraryService(sc, hk, seg, cfg.Library.EDFPath, log.Logger), nil
}

// ProvideCatalogService provides the catalog inspection service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCatalogService(storeHandle.Store, log.Logger), nil
}
