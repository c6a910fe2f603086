package ghostrunner

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

// ModDirs returns the folders PrepareForModding creates for an installation at gamePath.
func ModDirs(gamePath string) []string {
	result := make([]string, 0, 3)
	for _, dir := range []string{EnabledModsDir, LogicModsDir, CoreModsDir} {
		result = append(result, filepath.Join(gamePath, filepath.FromSlash(path.Join(ModPath, dir))))
	}
	return result
}

// PrepareForModding makes sure the mod folders exist. Calling it again is harmless.
func PrepareForModding(ctx context.Context, discovery game.DiscoveryResult) error {
	if discovery.Path == "" {
		return eris.New("discovery result without a path")
	}

	for _, dir := range ModDirs(discovery.Path) {
		api.Log(ctx, api.LogDebug, "Ensuring %s exists", dir)
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return eris.Wrapf(err, "failed to create %s", dir)
		}
	}

	return nil
}
