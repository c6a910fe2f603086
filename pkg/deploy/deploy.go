// Package deploy carries out install instructions against a game's mod folder.
package deploy

import (
	"context"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

var ErrUnsupportedInstruction = eris.New("unsupported instruction type")

// Mismatch describes a deployed file that changed or vanished since it was installed.
type Mismatch struct {
	File    game.DeployedFile `json:"file" yaml:"file"`
	Missing bool              `json:"missing" yaml:"missing"`
	Actual  string            `json:"actual,omitempty" yaml:"actual,omitempty"`
}

func stagedPath(stagingDir, source string) string {
	return filepath.Join(stagingDir, filepath.FromSlash(path.Clean(strings.ReplaceAll(source, "\\", "/"))))
}

// Deployment is the outcome of a successful Apply. Files that existed at a destination were moved
// to a backup folder below the mod path; Commit drops them, Rollback puts them back.
type Deployment struct {
	ModPath string
	Files   []game.DeployedFile

	backupDir string
	undo      []undoEntry
}

type undoEntry struct {
	dest   string
	backup string
}

// Apply copies every instruction's source from stagingDir to its destination below modPath and
// returns the written files with their checksums. On error everything Apply changed is undone.
func Apply(ctx context.Context, stagingDir, modPath string, instructions []game.InstallInstruction) (*Deployment, error) {
	for _, inst := range instructions {
		if inst.Type != game.InstructionCopy {
			return nil, eris.Wrapf(ErrUnsupportedInstruction, "%q for %s", inst.Type, inst.Source)
		}

		src := stagedPath(stagingDir, inst.Source)
		info, err := os.Stat(src)
		if err != nil {
			return nil, eris.Wrapf(err, "%s was not staged", inst.Source)
		}
		if !info.Mode().IsRegular() {
			return nil, eris.Errorf("staged %s is not a regular file", inst.Source)
		}
	}

	d := &Deployment{
		ModPath: modPath,
		Files:   make([]game.DeployedFile, 0, len(instructions)),
	}
	hasher := sha256.New()
	buffer := make([]byte, 128*1024)

	for _, inst := range instructions {
		src := stagedPath(stagingDir, inst.Source)
		dest := filepath.Join(modPath, inst.Destination)
		api.Log(ctx, api.LogDebug, "Copying %s to %s", src, dest)

		err := d.saveExisting(dest)
		if err == nil {
			var size int64
			size, err = copyFile(src, dest, hasher, buffer)
			if err == nil {
				d.Files = append(d.Files, game.DeployedFile{
					Source:      inst.Source,
					Destination: inst.Destination,
					Size:        size,
					Checksum:    hex.EncodeToString(hasher.Sum(nil)),
				})
				continue
			}
		}

		if rbErr := d.Rollback(ctx); rbErr != nil {
			api.Log(ctx, api.LogError, "Rollback failed: %s", eris.ToString(rbErr, false))
		}
		return nil, eris.Wrapf(err, "failed to deploy %s", inst.Source)
	}

	api.Log(ctx, api.LogInfo, "Deployed %d files to %s", len(d.Files), modPath)
	return d, nil
}

// saveExisting registers dest for rollback and moves a file already sitting there into the backup
// folder.
func (d *Deployment) saveExisting(dest string) error {
	info, err := os.Lstat(dest)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			d.undo = append(d.undo, undoEntry{dest: dest})
			return nil
		}
		return eris.Wrapf(err, "failed to check %s", dest)
	}

	if info.IsDir() {
		return eris.Errorf("%s is a folder", dest)
	}

	if d.backupDir == "" {
		err = os.MkdirAll(d.ModPath, 0o755)
		if err != nil {
			return eris.Wrapf(err, "failed to create %s", d.ModPath)
		}

		d.backupDir, err = os.MkdirTemp(d.ModPath, ".ghostrunner-backup-")
		if err != nil {
			return eris.Wrap(err, "failed to create backup folder")
		}
	}

	backup := filepath.Join(d.backupDir, strconv.Itoa(len(d.undo)))
	err = os.Rename(dest, backup)
	if err != nil {
		return eris.Wrapf(err, "failed to back up %s", dest)
	}

	d.undo = append(d.undo, undoEntry{dest: dest, backup: backup})
	return nil
}

// Rollback removes the files the deployment wrote and restores the ones it replaced.
func (d *Deployment) Rollback(ctx context.Context) error {
	api.Log(ctx, api.LogWarn, "Rolling back %d files in %s", len(d.undo), d.ModPath)

	var firstErr error
	for idx := len(d.undo) - 1; idx >= 0; idx-- {
		entry := d.undo[idx]
		err := os.Remove(entry.dest)
		if err != nil && !eris.Is(err, os.ErrNotExist) {
			firstErr = eris.Wrapf(err, "failed to remove %s", entry.dest)
			continue
		}

		if entry.backup != "" {
			err = os.Rename(entry.backup, entry.dest)
			if err != nil && firstErr == nil {
				firstErr = eris.Wrapf(err, "failed to restore %s", entry.dest)
			}
		} else {
			pruneEmptyDirs(d.ModPath, filepath.Dir(entry.dest))
		}
	}

	d.Files = nil
	d.undo = nil
	if firstErr != nil {
		// keep the backups around for manual recovery
		return firstErr
	}
	return d.dropBackups()
}

// Commit discards the backups of replaced files.
func (d *Deployment) Commit(ctx context.Context) {
	d.undo = nil
	if err := d.dropBackups(); err != nil {
		api.Log(ctx, api.LogWarn, "%v", err)
	}
}

func (d *Deployment) dropBackups() error {
	if d.backupDir == "" {
		return nil
	}

	err := os.RemoveAll(d.backupDir)
	if err != nil {
		return eris.Wrapf(err, "failed to remove %s", d.backupDir)
	}
	d.backupDir = ""
	return nil
}

func copyFile(src, dest string, hasher hash.Hash, buffer []byte) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	err = os.MkdirAll(filepath.Dir(dest), 0o755)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to create %s", filepath.Dir(dest))
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "failed to open %s", dest)
	}

	hasher.Reset()
	size, err := io.CopyBuffer(io.MultiWriter(out, hasher), in, buffer)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return 0, eris.Wrapf(err, "failed to write %s", dest)
	}

	err = out.Close()
	if err != nil {
		os.Remove(dest)
		return 0, eris.Wrapf(err, "failed to close %s", dest)
	}

	return size, nil
}

// Remove deletes deployed files below modPath. Files that are already gone are skipped; folders
// left empty are removed up to (but excluding) modPath.
func Remove(ctx context.Context, modPath string, files []game.DeployedFile) error {
	for _, file := range files {
		dest := filepath.Join(modPath, file.Destination)
		err := os.Remove(dest)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				api.Log(ctx, api.LogWarn, "%s is already gone", dest)
				continue
			}
			return eris.Wrapf(err, "failed to remove %s", dest)
		}

		pruneEmptyDirs(modPath, filepath.Dir(dest))
	}

	return nil
}

func pruneEmptyDirs(root, dir string) {
	root = filepath.Clean(root)
	for dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)) {
		// Remove only succeeds on empty folders.
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Verify re-hashes deployed files and reports every file that differs from its recorded checksum.
func Verify(ctx context.Context, modPath string, files []game.DeployedFile) ([]Mismatch, error) {
	result := []Mismatch{}
	hasher := sha256.New()
	buffer := make([]byte, 128*1024)

	for _, file := range files {
		dest := filepath.Join(modPath, file.Destination)
		f, err := os.Open(dest)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				api.Log(ctx, api.LogInfo, "%s is missing", dest)
				result = append(result, Mismatch{File: file, Missing: true})
				continue
			}
			return nil, eris.Wrapf(err, "failed to check %s", dest)
		}

		hasher.Reset()
		_, err = io.CopyBuffer(hasher, f, buffer)
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "failed to read %s", dest)
		}

		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != file.Checksum {
			api.Log(ctx, api.LogInfo, "%s has been modified", dest)
			result = append(result, Mismatch{File: file, Actual: actual})
		}
	}

	return result, nil
}
