package platform

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andygrunwald/vdf"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

// SteamStore finds games installed through Steam. Roots overrides the detected Steam
// installations when set.
type SteamStore struct {
	Roots []string
}

func (s SteamStore) ID() game.DiscoverySource {
	return game.SourceSteam
}

func (s SteamStore) FindByAppID(ctx context.Context, appID string) (string, bool) {
	roots := s.Roots
	if roots == nil {
		roots = steamRoots(ctx)
	}

	for _, library := range SteamLibraries(ctx, roots) {
		gamePath, err := findSteamApp(library, appID)
		if err != nil {
			api.Log(ctx, api.LogDebug, "App %s not in library %s: %v", appID, library, err)
			continue
		}

		return gamePath, true
	}

	return "", false
}

func readVDF(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	data, err := vdf.NewParser(f).Parse()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	return data, nil
}

func unescapeVDFPath(p string) string {
	return filepath.Clean(strings.ReplaceAll(p, "\\\\", "\\"))
}

// SteamLibraries returns every library folder referenced by the given Steam installations. Each
// root counts as a library itself.
func SteamLibraries(ctx context.Context, roots []string) []string {
	api.Log(ctx, api.LogInfo, "Looking for Steam libraries in %d installations", len(roots))

	seen := make(map[string]bool)
	libraries := []string{}
	add := func(lib string) {
		if !seen[lib] {
			seen[lib] = true
			libraries = append(libraries, lib)
		}
	}

	for _, root := range roots {
		add(filepath.Clean(root))

		for _, cfgPath := range []string{
			filepath.Join(root, "steamapps", "libraryfolders.vdf"),
			filepath.Join(root, "config", "libraryfolders.vdf"),
		} {
			data, err := readVDF(cfgPath)
			if err != nil {
				api.Log(ctx, api.LogDebug, "Skipping %s: %v", cfgPath, err)
				continue
			}

			folders, ok := lookupKey(data, "libraryfolders").(map[string]interface{})
			if !ok {
				api.Log(ctx, api.LogWarn, "%s has no libraryfolders section", cfgPath)
				continue
			}

			keys := make([]string, 0, len(folders))
			for key := range folders {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				switch value := folders[key].(type) {
				case map[string]interface{}:
					if libPath, ok := lookupKey(value, "path").(string); ok && libPath != "" {
						add(unescapeVDFPath(libPath))
					}
				case string:
					// The old format maps numeric keys directly to paths and mixes in unrelated keys.
					if isNumeric(key) && value != "" {
						add(unescapeVDFPath(value))
					}
				}
			}
		}
	}

	return libraries
}

func findSteamApp(library, appID string) (string, error) {
	manifest := filepath.Join(library, "steamapps", "appmanifest_"+appID+".acf")
	data, err := readVDF(manifest)
	if err != nil {
		return "", err
	}

	state, ok := lookupKey(data, "AppState").(map[string]interface{})
	if !ok {
		return "", eris.Errorf("%s has no AppState section", manifest)
	}

	installDir, ok := lookupKey(state, "installdir").(string)
	if !ok || installDir == "" {
		return "", eris.Errorf("%s has no installdir", manifest)
	}

	gamePath := filepath.Join(library, "steamapps", "common", installDir)
	info, err := os.Stat(gamePath)
	if err != nil {
		return "", eris.Wrapf(err, "failed to check %s", gamePath)
	}
	if !info.IsDir() {
		return "", eris.Errorf("%s is not a directory", gamePath)
	}

	return gamePath, nil
}

// lookupKey matches keys case-insensitively since Steam isn't consistent about their casing.
func lookupKey(section map[string]interface{}, key string) interface{} {
	if value, ok := section[key]; ok {
		return value
	}

	for k, value := range section {
		if strings.EqualFold(k, key) {
			return value
		}
	}

	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
