package ghostrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/platform"
)

type storeStub struct {
	result platform.StoreGame
	found  bool
	asked  [][]string
}

func (s *storeStub) FindByAppID(_ context.Context, appIDs ...string) (platform.StoreGame, bool) {
	s.asked = append(s.asked, appIDs)
	return s.result, s.found
}

func registryWith(value string, ok bool, seen *[]string) platform.RegistryLookup {
	return func(_ context.Context, hive platform.Hive, key, name string) (string, bool) {
		*seen = append(*seen, hive.String()+`\`+key+`[`+name+`]`)
		return value, ok
	}
}

func TestFindGameRegistry(t *testing.T) {
	var seen []string
	stores := &storeStub{}
	locator := &Locator{
		Registry: registryWith(`C:\GOG Games\Ghostrunner`, true, &seen),
		Stores:   stores,
	}

	gamePath, err := locator.FindGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `C:\GOG Games\Ghostrunner`, gamePath)
	assert.Equal(t, []string{`HKEY_LOCAL_MACHINE\SOFTWARE\WOW6432Node\GOG.com\Games\1957528513[PATH]`}, seen)

	result, err := locator.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.SourceRegistry, result.Source)
	assert.Empty(t, stores.asked, "stores must not be consulted after a registry hit")
}

func TestFindGameStoreFallback(t *testing.T) {
	var seen []string
	stores := &storeStub{
		result: platform.StoreGame{AppID: SteamAppID, Path: "/steam/common/Ghostrunner", Store: game.SourceSteam},
		found:  true,
	}
	locator := &Locator{Registry: registryWith("", false, &seen), Stores: stores}

	gamePath, err := locator.FindGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/steam/common/Ghostrunner", gamePath)
	assert.Equal(t, [][]string{{SteamAppID, GOGAppID}}, stores.asked)
}

func TestFindGameNotFound(t *testing.T) {
	var seen []string
	locator := &Locator{Registry: registryWith("", false, &seen), Stores: &storeStub{}}

	_, err := locator.FindGame(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, host.ErrGameNotFound))
}

func installedGame(t *testing.T) string {
	t.Helper()

	gameDir := t.TempDir()
	for _, file := range []string{"Ghostrunner.exe", "Ghostrunner/Binaries/Win64/Ghostrunner-Win64-Shipping.exe"} {
		dest := filepath.Join(gameDir, filepath.FromSlash(file))
		require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
		require.NoError(t, os.WriteFile(dest, nil, 0o644))
	}
	return gameDir
}

func TestDiscoverReportsSource(t *testing.T) {
	tests := []struct {
		name     string
		registry bool
		store    game.DiscoverySource
		want     game.DiscoverySource
	}{
		{name: "registry", registry: true, want: game.SourceRegistry},
		{name: "steam", store: game.SourceSteam, want: game.SourceSteam},
		{name: "gog", store: game.SourceGOG, want: game.SourceGOG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gameDir := installedGame(t)
			var seen []string
			ext := &Extension{Locator: &Locator{
				Registry: registryWith(gameDir, tt.registry, &seen),
				Stores: &storeStub{
					result: platform.StoreGame{AppID: SteamAppID, Path: gameDir, Store: tt.store},
					found:  !tt.registry,
				},
			}}

			hc, err := host.NewContext("1.0.0", nil)
			require.NoError(t, err)
			require.NoError(t, hc.RegisterGame(ext.Descriptor()))

			result, err := hc.Discover(context.Background(), GameID)
			require.NoError(t, err)
			assert.Equal(t, game.DiscoveryResult{Path: gameDir, Source: tt.want}, result)
		})
	}
}
