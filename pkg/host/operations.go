package host

import (
	"context"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

var (
	ErrGameNotFound   = eris.New("game not found")
	ErrNotSupported   = eris.New("no installer supports this content")
	ErrBadInstruction = eris.New("installer produced an invalid instruction")
)

// DiscoveryCache remembers where games were found.
type DiscoveryCache interface {
	GetDiscovery(ctx context.Context, gameID string) (*game.DiscoveryResult, error)
	SaveDiscovery(ctx context.Context, gameID string, result game.DiscoveryResult) error
	DeleteDiscovery(ctx context.Context, gameID string) error
}

// Discover resolves the install path of a registered game. A path override in the context wins,
// then a cached discovery that still has all required files, then the extension's own query.
func (c *Context) Discover(ctx context.Context, gameID string) (game.DiscoveryResult, error) {
	desc, err := c.Game(gameID)
	if err != nil {
		return game.DiscoveryResult{}, err
	}

	if override := api.GamePath(ctx); override != "" {
		result := game.DiscoveryResult{Path: override, Source: game.SourceOverride}
		if err := CheckRequiredFiles(result.Path, desc.RequiredFiles); err != nil {
			return game.DiscoveryResult{}, eris.Wrapf(err, "configured path for %s is invalid", desc.Name)
		}
		return result, nil
	}

	if c.cache != nil {
		cached, err := c.cache.GetDiscovery(ctx, gameID)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Failed to read cached discovery for %s: %v", gameID, err)
		} else if cached != nil {
			if CheckRequiredFiles(cached.Path, desc.RequiredFiles) == nil {
				api.Log(ctx, api.LogDebug, "Using cached path %s for %s", cached.Path, gameID)
				return game.DiscoveryResult{Path: cached.Path, Source: game.SourceCache}, nil
			}
			api.Log(ctx, api.LogInfo, "Cached path %s for %s is stale", cached.Path, gameID)
			if err := c.cache.DeleteDiscovery(ctx, gameID); err != nil {
				api.Log(ctx, api.LogWarn, "Failed to drop stale discovery for %s: %v", gameID, err)
			}
		}
	}

	api.Log(ctx, api.LogInfo, "Looking for %s", desc.Name)
	result, err := desc.QueryPath(ctx)
	if err != nil {
		return game.DiscoveryResult{}, eris.Wrapf(err, "failed to discover %s", desc.Name)
	}

	if result.Source == "" {
		result.Source = game.SourceUnknown
	}
	if err := CheckRequiredFiles(result.Path, desc.RequiredFiles); err != nil {
		return game.DiscoveryResult{}, eris.Wrapf(ErrGameNotFound, "%s at %s: %v", desc.Name, result.Path, err)
	}

	if c.cache != nil {
		err = c.cache.SaveDiscovery(ctx, gameID, result)
		if err != nil {
			api.Log(ctx, api.LogWarn, "Failed to cache discovery for %s: %v", gameID, err)
		}
	}

	return result, nil
}

// Setup runs the game's setup callback, if it has one.
func (c *Context) Setup(ctx context.Context, gameID string, discovery game.DiscoveryResult) error {
	desc, err := c.Game(gameID)
	if err != nil {
		return err
	}

	if desc.Setup == nil {
		return nil
	}

	api.Log(ctx, api.LogInfo, "Preparing %s for modding", desc.Name)
	return desc.Setup(ctx, discovery)
}

// FindInstaller returns the first installer, by priority, that supports the given files for the
// given game.
func (c *Context) FindInstaller(ctx context.Context, files []string, gameID string) (Installer, game.SupportResult, error) {
	for _, inst := range c.Installers() {
		result := inst.Test(files, gameID)
		if result.Supported {
			api.Log(ctx, api.LogDebug, "Installer %s (priority %d) accepted %d files", inst.Name, inst.Priority, len(files))
			return inst, result, nil
		}
	}

	return Installer{}, game.SupportResult{}, eris.Wrapf(ErrNotSupported, "game %s", gameID)
}

// Install runs the named installer and checks the instructions it produced.
func (c *Context) Install(ctx context.Context, installerName string, files []string) ([]game.InstallInstruction, error) {
	inst, err := c.installer(installerName)
	if err != nil {
		return nil, err
	}

	instructions, err := inst.Install(files)
	if err != nil {
		return nil, eris.Wrapf(err, "installer %s failed", installerName)
	}

	err = ValidateInstructions(files, instructions)
	if err != nil {
		return nil, eris.Wrapf(err, "installer %s", installerName)
	}

	if !api.ReleaseBuild {
		api.Log(ctx, api.LogDebug, "Instructions from %s:\n%s", installerName, spew.Sdump(instructions))
	}
	return instructions, nil
}

// ValidateInstructions ensures every instruction copies one of the given files to a relative
// destination.
func ValidateInstructions(files []string, instructions []game.InstallInstruction) error {
	known := make(map[string]bool, len(files))
	for _, file := range files {
		known[file] = true
	}

	for _, inst := range instructions {
		if inst.Type != game.InstructionCopy {
			return eris.Wrapf(ErrBadInstruction, "unsupported type %q for %s", inst.Type, inst.Source)
		}

		if !known[inst.Source] {
			return eris.Wrapf(ErrBadInstruction, "source %s is not part of the archive", inst.Source)
		}

		dest := filepath.Clean(inst.Destination)
		if inst.Destination == "" || filepath.IsAbs(dest) || dest == ".." || hasParentPrefix(dest) {
			return eris.Wrapf(ErrBadInstruction, "destination %s escapes the mod folder", inst.Destination)
		}
	}

	return nil
}

func hasParentPrefix(p string) bool {
	return len(p) >= 3 && p[:2] == ".." && os.IsPathSeparator(p[2])
}

// CheckRequiredFiles fails if any of the files (relative, slash-separated) is missing below root.
func CheckRequiredFiles(root string, files []string) error {
	if root == "" {
		return eris.New("empty path")
	}

	for _, file := range files {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(file)))
		if err != nil {
			return eris.Wrapf(err, "missing %s", file)
		}
	}

	return nil
}

type ToolState struct {
	Tool    game.ToolDescriptor `json:"tool" yaml:"tool"`
	Path    string              `json:"path" yaml:"path"`
	Found   bool                `json:"found" yaml:"found"`
	Missing []string            `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// ToolStatus checks whether a tool has been installed into the given directory.
func ToolStatus(dir string, tool game.ToolDescriptor) ToolState {
	state := ToolState{Tool: tool, Path: filepath.Join(dir, filepath.FromSlash(tool.Executable))}
	for _, file := range tool.RequiredFiles {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(file))); err != nil {
			state.Missing = append(state.Missing, file)
		}
	}

	state.Found = len(state.Missing) == 0
	return state
}
