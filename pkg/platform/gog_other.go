//go:build !windows

package platform

import (
	"context"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

func gogRegistryPath(ctx context.Context, appID string) (string, bool) {
	return "", false
}

func galaxyDatabasePath(ctx context.Context) string {
	api.Log(ctx, api.LogDebug, "GOG Galaxy detection hasn't been implemented for this platform, yet.")
	return ""
}
