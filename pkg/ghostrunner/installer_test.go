package ghostrunner

import (
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

func copyTo(source, dest string) game.InstallInstruction {
	return game.InstallInstruction{
		Type:        game.InstructionCopy,
		Source:      source,
		Destination: filepath.FromSlash(dest),
	}
}

func TestContentSupport(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		gameID    string
		supported bool
	}{
		{"pak", []string{"archive/mod_P.pak"}, GameID, true},
		{"upper case pak", []string{"readme.txt", "archive/MOD.PAK"}, GameID, true},
		{"other game", []string{"archive/mod_P.pak"}, "skyrim", false},
		{"empty list", []string{}, GameID, false},
		{"nil list", nil, GameID, false},
		{"dll only", []string{"plugin.dll"}, GameID, false},
		{"no pak", []string{"readme.txt", "textures/"}, GameID, false},
		{"pak folder", []string{"weird.pak/"}, GameID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TestSupportedContent(tt.files, tt.gameID)
			assert.Equal(t, tt.supported, result.Supported)
			assert.NotNil(t, result.RequiredFiles)
			assert.Empty(t, result.RequiredFiles)
		})
	}
}

func TestInstallContentNestedArchive(t *testing.T) {
	instructions, err := InstallContent([]string{
		"archive/mod_P.pak",
		"archive/readme.txt",
		"other/stray.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, []game.InstallInstruction{
		copyTo("archive/mod_P.pak", "Paks/~mods/mod_P.pak"),
		copyTo("archive/readme.txt", "Paks/LogicMods/readme.txt"),
	}, instructions)
}

func TestInstallContentRouting(t *testing.T) {
	instructions, err := InstallContent([]string{
		"archive/",
		"archive/logic.pak",
		"archive/plugin.dll",
		"archive/mod_P.pak",
		"archive/sub/deep_P.pak",
		"archive/Plugin.DLL",
	})
	require.NoError(t, err)

	assert.Equal(t, []game.InstallInstruction{
		copyTo("archive/logic.pak", "Paks/LogicMods/logic.pak"),
		copyTo("archive/plugin.dll", "CoreMods/plugin.dll"),
		copyTo("archive/mod_P.pak", "Paks/~mods/mod_P.pak"),
		copyTo("archive/sub/deep_P.pak", "Paks/~mods/sub/deep_P.pak"),
		copyTo("archive/Plugin.DLL", "CoreMods/Plugin.DLL"),
	}, instructions)
}

func TestInstallContentDLLAnchor(t *testing.T) {
	instructions, err := InstallContent([]string{
		"readme.md",
		"bin/UnrealEngineModLoader.dll",
		"bin/mod_P.pak",
	})
	require.NoError(t, err)

	assert.Equal(t, []game.InstallInstruction{
		copyTo("bin/UnrealEngineModLoader.dll", "CoreMods/UnrealEngineModLoader.dll"),
		copyTo("bin/mod_P.pak", "Paks/~mods/mod_P.pak"),
	}, instructions)
}

func TestInstallContentTopLevelAnchor(t *testing.T) {
	instructions, err := InstallContent([]string{
		"mod_P.pak",
		"docs/readme.txt",
		"docs/",
	})
	require.NoError(t, err)

	assert.Equal(t, []game.InstallInstruction{
		copyTo("mod_P.pak", "Paks/~mods/mod_P.pak"),
		copyTo("docs/readme.txt", "Paks/LogicMods/docs/readme.txt"),
	}, instructions)
}

func TestInstallContentBackslashes(t *testing.T) {
	instructions, err := InstallContent([]string{
		"archive\\",
		"archive\\mod_P.pak",
		"archive\\CoreMod.dll",
		"elsewhere\\stray.pak",
	})
	require.NoError(t, err)

	assert.Equal(t, []game.InstallInstruction{
		copyTo("archive\\mod_P.pak", "Paks/~mods/mod_P.pak"),
		copyTo("archive\\CoreMod.dll", "CoreMods/CoreMod.dll"),
	}, instructions)
}

func TestInstallContentSkipsSiblingPrefix(t *testing.T) {
	instructions, err := InstallContent([]string{
		"archive/mod.pak",
		"archive2/other.pak",
	})
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Equal(t, "archive/mod.pak", instructions[0].Source)
}

func TestInstallContentNoAnchor(t *testing.T) {
	_, err := InstallContent([]string{"readme.txt", "folder/"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoAnchor))

	_, err = InstallContent(nil)
	assert.True(t, eris.Is(err, ErrNoAnchor))
}

func TestInstallContentPreservesSources(t *testing.T) {
	files := []string{
		"pack/a_P.pak",
		"pack/b.pak",
		"pack/nested/",
		"pack/nested/c.dll",
		"pack/nested/notes.txt",
		"outside.txt",
	}

	instructions, err := InstallContent(files)
	require.NoError(t, err)
	assert.Len(t, instructions, 4)

	known := make(map[string]bool)
	for _, file := range files {
		known[file] = true
	}

	for _, inst := range instructions {
		assert.Equal(t, game.InstructionCopy, inst.Type)
		assert.True(t, known[inst.Source], "%s was not part of the input", inst.Source)
	}
}

func TestIsEnabledMod(t *testing.T) {
	assert.True(t, IsEnabledMod("mod_P.pak"))
	assert.True(t, IsEnabledMod("dir/mod_p.pak"))
	assert.True(t, IsEnabledMod("MOD_P.PAK"))
	assert.False(t, IsEnabledMod("mod.pak"))
	assert.False(t, IsEnabledMod("mod_P.txt"))
	assert.False(t, IsEnabledMod("modP.pak"))
}
