package platform

import (
	"context"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

// Store looks up installed games by storefront app id.
type Store interface {
	ID() game.DiscoverySource
	FindByAppID(ctx context.Context, appID string) (string, bool)
}

type StoreGame struct {
	AppID string
	Path  string
	Store game.DiscoverySource
}

// StoreHelper queries a list of storefronts in order.
type StoreHelper struct {
	Stores []Store
}

func DefaultStoreHelper() *StoreHelper {
	return &StoreHelper{Stores: []Store{SteamStore{}, GOGStore{}}}
}

// FindByAppID returns the first installation any store reports for any of the given app ids.
// Stores are tried in order; within a store the app ids are tried in order.
func (h *StoreHelper) FindByAppID(ctx context.Context, appIDs ...string) (StoreGame, bool) {
	for _, store := range h.Stores {
		for _, appID := range appIDs {
			gamePath, ok := store.FindByAppID(ctx, appID)
			if !ok {
				continue
			}

			api.Log(ctx, api.LogInfo, "Found app %s through %s at %s", appID, store.ID(), gamePath)
			return StoreGame{AppID: appID, Path: gamePath, Store: store.ID()}, true
		}
	}

	return StoreGame{}, false
}
