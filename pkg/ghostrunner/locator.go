package ghostrunner

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/platform"
)

// GOGRegistryKey is written by the GOG installer below HKEY_LOCAL_MACHINE.
const GOGRegistryKey = `SOFTWARE\WOW6432Node\GOG.com\Games\` + GOGAppID

// StoreFinder is implemented by platform.StoreHelper.
type StoreFinder interface {
	FindByAppID(ctx context.Context, appIDs ...string) (platform.StoreGame, bool)
}

type Locator struct {
	Registry platform.RegistryLookup
	Stores   StoreFinder
}

func DefaultLocator() *Locator {
	return &Locator{
		Registry: platform.LookupRegistryString,
		Stores:   platform.DefaultStoreHelper(),
	}
}

// FindGame returns the install folder of Ghostrunner. See Locate.
func (l *Locator) FindGame(ctx context.Context) (string, error) {
	result, err := l.Locate(ctx)
	if err != nil {
		return "", err
	}
	return result.Path, nil
}

// Locate checks the GOG registry entry first and falls back to asking the storefronts for
// either app id. The result names the source that produced the path.
func (l *Locator) Locate(ctx context.Context) (game.DiscoveryResult, error) {
	if l.Registry != nil {
		if instPath, ok := l.Registry(ctx, platform.LocalMachine, GOGRegistryKey, "PATH"); ok {
			api.Log(ctx, api.LogInfo, "Found %s through the registry at %s", GameName, instPath)
			return game.DiscoveryResult{Path: instPath, Source: game.SourceRegistry}, nil
		}
	}

	if l.Stores != nil {
		if found, ok := l.Stores.FindByAppID(ctx, SteamAppID, GOGAppID); ok {
			return game.DiscoveryResult{Path: found.Path, Source: found.Store}, nil
		}
	}

	return game.DiscoveryResult{}, eris.Wrapf(host.ErrGameNotFound, "%s is neither in the registry nor in any store", GameName)
}
