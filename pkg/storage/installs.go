package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

var (
	installsBucket = []byte("installs")

	ErrInstallNotFound = eris.New("install not found")
)

// InstallRecord remembers which files an installed mod placed in the game folder.
type InstallRecord struct {
	ID           string                    `json:"id" yaml:"id"`
	GameID       string                    `json:"gameId" yaml:"gameId"`
	Name         string                    `json:"name" yaml:"name"`
	Archive      string                    `json:"archive" yaml:"archive"`
	Installer    string                    `json:"installer" yaml:"installer"`
	InstalledAt  time.Time                 `json:"installedAt" yaml:"installedAt"`
	Instructions []game.InstallInstruction `json:"instructions" yaml:"instructions"`
	Files        []game.DeployedFile       `json:"files" yaml:"files"`
}

// SaveInstall stores rec, assigning an id and install time when they're missing.
func SaveInstall(ctx context.Context, rec *InstallRecord) error {
	if rec.ID == "" {
		rec.ID = nanoid.New()
	}
	if rec.InstalledAt.IsZero() {
		rec.InstalledAt = time.Now()
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "failed to serialise install %s", rec.ID)
	}

	return update(ctx, func(tx *bolt.Tx) error {
		err := tx.Bucket(installsBucket).Put([]byte(rec.ID), encoded)
		if err != nil {
			return eris.Wrapf(err, "failed to save install %s", rec.ID)
		}
		return nil
	})
}

func GetInstall(ctx context.Context, id string) (*InstallRecord, error) {
	var rec *InstallRecord
	err := view(ctx, func(tx *bolt.Tx) error {
		encoded := tx.Bucket(installsBucket).Get([]byte(id))
		if encoded == nil {
			return eris.Wrapf(ErrInstallNotFound, "%s", id)
		}

		rec = new(InstallRecord)
		return json.Unmarshal(encoded, rec)
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListInstalls returns all installs for gameID (or every game if gameID is empty), oldest first.
func ListInstalls(ctx context.Context, gameID string) ([]*InstallRecord, error) {
	result := []*InstallRecord{}
	err := view(ctx, func(tx *bolt.Tx) error {
		return tx.Bucket(installsBucket).ForEach(func(k, v []byte) error {
			rec := new(InstallRecord)
			err := json.Unmarshal(v, rec)
			if err != nil {
				return eris.Wrapf(err, "failed to deserialise install %s", k)
			}

			if gameID == "" || rec.GameID == gameID {
				result = append(result, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].InstalledAt.Before(result[j].InstalledAt)
	})
	return result, nil
}

func DeleteInstall(ctx context.Context, id string) error {
	return update(ctx, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(installsBucket)
		if bucket.Get([]byte(id)) == nil {
			return eris.Wrapf(ErrInstallNotFound, "%s", id)
		}
		return bucket.Delete([]byte(id))
	})
}
