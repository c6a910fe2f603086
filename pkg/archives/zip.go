// Package archives reads mod archives the way the host hands them to installers.
package archives

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

var ErrUnsafePath = eris.New("archive entry escapes the destination")

// ListFiles returns the archive's entries in archive order. Folders end with a "/". Entries
// Extract won't write (symlinks, devices) are left out.
func ListFiles(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", archivePath)
	}
	defer r.Close()

	files := make([]string, 0, len(r.File))
	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch {
		case f.FileInfo().IsDir():
			if !strings.HasSuffix(name, "/") {
				name += "/"
			}
		case !f.Mode().IsRegular():
			continue
		}
		files = append(files, name)
	}

	return files, nil
}

// entryPath maps an archive entry onto dest and refuses anything that would land outside of it.
func entryPath(dest, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || path.IsAbs(name) || strings.Contains(name, ":") {
		return "", eris.Wrapf(ErrUnsafePath, "%s", name)
	}

	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", eris.Wrapf(ErrUnsafePath, "%s", name)
	}

	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

// Extract unpacks every regular file of the archive below dest. Entries are written under the
// same (slash-normalised) names ListFiles reports.
func Extract(ctx context.Context, archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", archivePath)
	}
	defer r.Close()

	api.Log(ctx, api.LogInfo, "Extracting %s to %s", archivePath, dest)
	buffer := make([]byte, 128*1024)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if !f.Mode().IsRegular() {
			api.Log(ctx, api.LogWarn, "Skipping %s because it isn't a regular file", f.Name)
			continue
		}

		destPath, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		err = extractFile(f, destPath, buffer)
		if err != nil {
			return eris.Wrapf(err, "failed to extract %s from %s", f.Name, archivePath)
		}
	}

	return nil
}

func extractFile(f *zip.File, destPath string, buffer []byte) error {
	err := os.MkdirAll(filepath.Dir(destPath), 0o755)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", filepath.Dir(destPath))
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", destPath)
	}

	_, err = io.CopyBuffer(out, src, buffer)
	if err != nil {
		out.Close()
		return eris.Wrapf(err, "failed to write %s", destPath)
	}

	return out.Close()
}
