package storage

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

var discoveryBucket = []byte("discovery")

type discoveryEntry struct {
	Path       string
	Source     game.DiscoverySource
	Discovered time.Time
}

func SaveDiscovery(ctx context.Context, gameID string, result game.DiscoveryResult) error {
	encoded, err := json.Marshal(discoveryEntry{
		Path:       result.Path,
		Source:     result.Source,
		Discovered: time.Now(),
	})
	if err != nil {
		return eris.Wrapf(err, "failed to serialise discovery for %s", gameID)
	}

	return update(ctx, func(tx *bolt.Tx) error {
		err := tx.Bucket(discoveryBucket).Put([]byte(gameID), encoded)
		if err != nil {
			return eris.Wrapf(err, "failed to save discovery for %s", gameID)
		}
		return nil
	})
}

// GetDiscovery returns the remembered discovery for gameID or nil if there is none.
func GetDiscovery(ctx context.Context, gameID string) (*game.DiscoveryResult, error) {
	var result *game.DiscoveryResult
	err := view(ctx, func(tx *bolt.Tx) error {
		encoded := tx.Bucket(discoveryBucket).Get([]byte(gameID))
		if encoded == nil {
			return nil
		}

		var entry discoveryEntry
		err := json.Unmarshal(encoded, &entry)
		if err != nil {
			return eris.Wrapf(err, "failed to deserialise discovery for %s", gameID)
		}

		result = &game.DiscoveryResult{Path: entry.Path, Source: entry.Source}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func DeleteDiscovery(ctx context.Context, gameID string) error {
	return update(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(discoveryBucket).Delete([]byte(gameID))
	})
}

func cleanDiscoveries(ctx context.Context, tx *bolt.Tx) error {
	bucket := tx.Bucket(discoveryBucket)
	stale := [][]byte{}

	err := bucket.ForEach(func(k, v []byte) error {
		var entry discoveryEntry
		err := json.Unmarshal(v, &entry)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Dropping unreadable discovery for %s", k)
			stale = append(stale, k)
			return nil
		}

		_, err = os.Stat(entry.Path)
		if err == nil {
			return nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "failed to check %s", entry.Path)
		}

		stale = append(stale, k)
		return nil
	})
	if err != nil {
		return err
	}

	// Deleting inside ForEach isn't allowed.
	for _, k := range stale {
		err = bucket.Delete(k)
		if err != nil {
			return eris.Wrapf(err, "failed to delete discovery %s", k)
		}
	}

	return nil
}

type discoveryCache struct{}

// Discoveries exposes the discovery functions as a host.DiscoveryCache.
var Discoveries discoveryCache

func (discoveryCache) GetDiscovery(ctx context.Context, gameID string) (*game.DiscoveryResult, error) {
	return GetDiscovery(ctx, gameID)
}

func (discoveryCache) SaveDiscovery(ctx context.Context, gameID string, result game.DiscoveryResult) error {
	return SaveDiscovery(ctx, gameID, result)
}

func (discoveryCache) DeleteDiscovery(ctx context.Context, gameID string) error {
	return DeleteDiscovery(ctx, gameID)
}
