package ghostrunner

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

// ErrNoAnchor is returned by InstallContent for file lists without any .pak or .dll file.
var ErrNoAnchor = eris.New("archive contains neither a .pak nor a .dll file")

// Archive listings may use either separator; everything below works on forward slashes.
func normalize(file string) string {
	return strings.ReplaceAll(file, "\\", "/")
}

func isDirEntry(file string) bool {
	return strings.HasSuffix(file, "/") || strings.HasSuffix(file, "\\")
}

func extOf(file string) string {
	return strings.ToLower(path.Ext(normalize(file)))
}

// TestSupportedContent accepts any archive for Ghostrunner that contains at least one pak.
func TestSupportedContent(files []string, gameID string) game.SupportResult {
	supported := false
	if gameID == GameID {
		for _, file := range files {
			if !isDirEntry(file) && extOf(file) == ModFileExt {
				supported = true
				break
			}
		}
	}

	return game.SupportResult{
		Supported:     supported,
		RequiredFiles: []string{},
	}
}

// findAnchor returns the first pak or dll in the list. Its folder is treated as the archive root.
func findAnchor(files []string) (string, bool) {
	for _, file := range files {
		if isDirEntry(file) {
			continue
		}

		ext := extOf(file)
		if ext == ModFileExt || ext == LibraryExt {
			return file, true
		}
	}

	return "", false
}

func relativeTo(root, file string) (string, bool) {
	file = path.Clean(file)
	if root == "." {
		if file == "." || file == ".." || strings.HasPrefix(file, "../") || path.IsAbs(file) {
			return "", false
		}
		return file, true
	}

	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(file, prefix) {
		return "", false
	}
	return file[len(prefix):], true
}

// IsEnabledMod reports whether a pak carries the suffix the engine uses to mount it automatically.
// The comparison ignores case.
func IsEnabledMod(file string) bool {
	if extOf(file) != ModFileExt {
		return false
	}

	base := path.Base(normalize(file))
	name := base[:len(base)-len(ModFileExt)]
	return strings.HasSuffix(strings.ToUpper(name), strings.ToUpper(EnabledSuffix))
}

// Destination maps a path relative to the archive root to its destination below the mod path.
func Destination(rel string) string {
	rel = normalize(rel)

	var dir string
	switch {
	case extOf(rel) == LibraryExt:
		dir = CoreModsDir
	case IsEnabledMod(rel):
		dir = EnabledModsDir
	default:
		dir = LogicModsDir
	}

	return filepath.FromSlash(path.Join(dir, rel))
}

// InstallContent builds one copy instruction for every file below the archive root. Folder
// entries and files outside the root are skipped.
func InstallContent(files []string) ([]game.InstallInstruction, error) {
	anchor, ok := findAnchor(files)
	if !ok {
		return nil, eris.Wrapf(ErrNoAnchor, "checked %d files", len(files))
	}

	root := path.Dir(path.Clean(normalize(anchor)))
	instructions := make([]game.InstallInstruction, 0, len(files))
	for _, file := range files {
		if isDirEntry(file) {
			continue
		}

		rel, ok := relativeTo(root, normalize(file))
		if !ok {
			continue
		}

		instructions = append(instructions, game.InstallInstruction{
			Type:        game.InstructionCopy,
			Source:      file,
			Destination: Destination(rel),
		})
	}

	return instructions, nil
}
