package providers

import (
	"github.com/samber/do/v2"

	"github.com/neurovault/neurovault-server/internal/config"
	"github.com/neurovault/neurovault-server/internal/logger"
	"github.com/neurovault/neurovault-server/internal/scanner"
)

// ProvideScanner provides the library scanner.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return scanner.New(storeHandle.Store, scanner.Config{
		StatePath:       cfg.Library.StateFile,
		ExcludeChannels: cfg.Scanner.ExcludeChannels,
	}, log.Logger), nil
}

// ProvideHousekeeper provides the archive maintenance helper.
func ProvideHousekeeper(i do.Injector) (*scanner.Housekeeper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return scanner.NewHousekeeper(cfg.Scanner.ExcludeChannels, log.Logger), nil
}
