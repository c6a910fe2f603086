package platform

import (
	"context"
	"path/filepath"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

func steamRoots(ctx context.Context) []string {
	api.Log(ctx, api.LogInfo, "Looking for Steam installation")

	roots := []string{}
	if steamPath, ok := LookupRegistryString(ctx, CurrentUser, `SOFTWARE\Valve\Steam`, "SteamPath"); ok {
		roots = append(roots, filepath.Clean(steamPath))
	}

	if installPath, ok := LookupRegistryString(ctx, LocalMachine, `SOFTWARE\WOW6432Node\Valve\Steam`, "InstallPath"); ok {
		installPath = filepath.Clean(installPath)
		if len(roots) == 0 || roots[0] != installPath {
			roots = append(roots, installPath)
		}
	}

	return roots
}
