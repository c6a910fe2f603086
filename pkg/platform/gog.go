package platform

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	// we use the sqlite3 driver through sql.Open()
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

// GOGStore finds games installed through GOG (standalone installers or GOG Galaxy).
// DatabasePath overrides the detected galaxy-2.0.db location when set.
type GOGStore struct {
	DatabasePath string
}

func (s GOGStore) ID() game.DiscoverySource {
	return game.SourceGOG
}

func (s GOGStore) FindByAppID(ctx context.Context, appID string) (string, bool) {
	if gamePath, ok := gogRegistryPath(ctx, appID); ok {
		return gamePath, true
	}

	dbPath := s.DatabasePath
	if dbPath == "" {
		dbPath = galaxyDatabasePath(ctx)
	}
	if dbPath == "" {
		return "", false
	}

	gamePath, err := queryGalaxyDB(ctx, dbPath, appID)
	if err != nil {
		api.Log(ctx, api.LogDebug, "GOG Galaxy lookup for %s failed: %v", appID, err)
		return "", false
	}

	return gamePath, true
}

func queryGalaxyDB(ctx context.Context, dbPath, appID string) (string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return "", eris.Wrapf(err, "failed to check %s", dbPath)
	}

	api.Log(ctx, api.LogInfo, "Opening GOG Galaxy storage")
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(dbPath)+"?mode=ro")
	if err != nil {
		return "", eris.Wrapf(err, "failed to open %s", dbPath)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT installationPath FROM InstalledBaseProducts WHERE productId = ?", appID)
	if err != nil {
		return "", eris.Wrap(err, "failed to read from GOG Galaxy storage")
	}
	defer rows.Close()

	for rows.Next() {
		var installPath string
		err = rows.Scan(&installPath)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Failed to read a row from GOG Galaxy storage (%v)", err)
			continue
		}

		info, err := os.Stat(installPath)
		if err == nil && info.IsDir() {
			return installPath, nil
		}

		api.Log(ctx, api.LogDebug, "GOG Galaxy lists %s for %s but it is missing", installPath, appID)
	}

	if err = rows.Err(); err != nil {
		return "", eris.Wrap(err, "failed to iterate GOG Galaxy storage")
	}

	return "", eris.Errorf("product %s is not installed", appID)
}
