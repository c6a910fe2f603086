// Package ghostrunner teaches the host how to find, prepare and mod Ghostrunner.
package ghostrunner

import (
	"context"
	"path"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
)

const (
	GameID     = "ghostrunner"
	GameName   = "Ghostrunner"
	SteamAppID = "1139900"
	GOGAppID   = "1957528513"

	InstallerName     = "ghostrunner-mod"
	InstallerPriority = 25

	// ModFileExt is the extension of Unreal Engine pak files.
	ModFileExt = ".pak"
	// LibraryExt is the extension of native mods loaded by the Unreal Engine mod loader.
	LibraryExt = ".dll"
	// EnabledSuffix marks paks the engine mounts on its own.
	EnabledSuffix = "_P"
)

// Paths below the mod path (the game's content folder). All of them use forward slashes.
const (
	ModPath        = "Ghostrunner/Content"
	EnabledModsDir = "Paks/~mods"
	LogicModsDir   = "Paks/LogicMods"
	CoreModsDir    = "CoreMods"
)

var moddingTools = []game.ToolDescriptor{
	{
		ID:         "Unrealmodloader",
		Name:       "Unreal Engine Modloader",
		ShortName:  "UML",
		Logo:       "UML.png",
		Executable: "UnrealEngineModLauncher.exe",
		RequiredFiles: []string{
			"UnrealEngineModLauncher.exe",
			"ModLoaderInfo.ini",
			"UnrealEngineModLoader.dll",
		},
		Shell: true,
	},
	{
		ID:            "Fmodel",
		Name:          "Fmodel",
		ShortName:     "Fmodel",
		Logo:          "Fmodel.png",
		Executable:    "Fmodel.exe",
		RequiredFiles: []string{"Fmodel.exe"},
	},
}

// Tools returns the auxiliary modding tools the host should offer for Ghostrunner.
func Tools() []game.ToolDescriptor {
	result := make([]game.ToolDescriptor, len(moddingTools))
	for idx, tool := range moddingTools {
		tool.RequiredFiles = append([]string(nil), tool.RequiredFiles...)
		result[idx] = tool
	}
	return result
}

// Extension implements game.Extension for Ghostrunner.
type Extension struct {
	Locator *Locator
}

var _ game.Extension = (*Extension)(nil)

func New() *Extension {
	return &Extension{Locator: DefaultLocator()}
}

func (e *Extension) Locate(ctx context.Context) (game.DiscoveryResult, error) {
	return e.Locator.Locate(ctx)
}

func (e *Extension) Prepare(ctx context.Context, discovery game.DiscoveryResult) error {
	return PrepareForModding(ctx, discovery)
}

func (e *Extension) Classify(files []string, gameID string) game.SupportResult {
	return TestSupportedContent(files, gameID)
}

func (e *Extension) MapInstructions(files []string) ([]game.InstallInstruction, error) {
	return InstallContent(files)
}

// Descriptor describes Ghostrunner to the host. The callbacks are bound to e.
func (e *Extension) Descriptor() game.GameDescriptor {
	return game.GameDescriptor{
		ID:         GameID,
		Name:       GameName,
		MergeMods:  true,
		Logo:       "gameart.png",
		Executable: "Ghostrunner.exe",
		ModPath:    path.Clean(ModPath),
		RequiredFiles: []string{
			"Ghostrunner.exe",
			"Ghostrunner/Binaries/Win64/Ghostrunner-Win64-Shipping.exe",
		},
		Environment: map[string]string{
			"SteamAPPId": SteamAppID,
		},
		Details: game.StoreDetails{
			SteamAppID: SteamAppID,
			GOGAppID:   GOGAppID,
		},
		Tools:          Tools(),
		HostConstraint: "^1.0.0",
		QueryPath:      e.Locate,
		Setup:          e.Prepare,
	}
}

// Register registers the game and its installer with the host. It reports whether both
// registrations succeeded.
func Register(ctx context.Context, hc *host.Context) bool {
	ext := New()

	err := hc.RegisterGame(ext.Descriptor())
	if err != nil {
		api.Log(ctx, api.LogError, "Failed to register %s: %v", GameName, err)
		return false
	}

	err = hc.RegisterInstaller(InstallerName, InstallerPriority, ext.Classify, ext.MapInstructions)
	if err != nil {
		api.Log(ctx, api.LogError, "Failed to register installer %s: %v", InstallerName, err)
		return false
	}

	return true
}
