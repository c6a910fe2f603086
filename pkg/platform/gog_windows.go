package platform

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

type gogConfig struct {
	LibraryPath string `json:"libraryPath"`
	StoragePath string `json:"storagePath"`
}

func gogRegistryPath(ctx context.Context, appID string) (string, bool) {
	return LookupRegistryString(ctx, LocalMachine, `SOFTWARE\WOW6432Node\GOG.com\Games\`+appID, "path")
}

func galaxyDatabasePath(ctx context.Context) string {
	progData := os.Getenv("ProgramData")
	if progData == "" {
		return ""
	}

	storagePath := filepath.Join(progData, "GOG.com", "Galaxy", "storage")
	configPath := filepath.Join(progData, "GOG.com", "Galaxy", "config.json")
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		api.Log(ctx, api.LogDebug, "Could not read %s (%v), using the default storage path", configPath, err)
	} else {
		var config gogConfig
		err = json.Unmarshal(configBytes, &config)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Failed to parse %s: %v", configPath, err)
		} else if config.StoragePath != "" {
			storagePath = config.StoragePath
		}
	}

	return filepath.Join(storagePath, "galaxy-2.0.db")
}
