//go:build !windows

package platform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

func steamRoots(ctx context.Context) []string {
	api.Log(ctx, api.LogInfo, "Looking for Steam installation")

	home, err := os.UserHomeDir()
	if err != nil {
		api.Log(ctx, api.LogWarn, "Could not determine the home directory (%v), skipping Steam", err)
		return nil
	}

	var candidates []string
	if runtime.GOOS == "darwin" {
		candidates = []string{filepath.Join(home, "Library", "Application Support", "Steam")}
	} else {
		candidates = []string{
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		}
	}

	roots := []string{}
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}

		if !seen[resolved] {
			seen[resolved] = true
			roots = append(roots, resolved)
		}
	}

	return roots
}
