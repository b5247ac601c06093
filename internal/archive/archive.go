// Package archive packages a finished run directory.
//
// Archiving happens once per run, after every region has been exported. The
// directory is first pruned bottom-up so that only output files remain, then
// zipped next to itself as <dir>.zip, then removed.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// Archiver prunes, zips and removes run directories.
type Archiver struct {
	keep         map[string]bool
	keepDirs     map[string]bool
	removeSource bool
	logger       *zap.Logger
}

// New returns an Archiver keeping the files directly in the run directory
// whose extension is in keep, plus everything below a directory named in
// keepDirs. Extensions are compared
// case-insensitively and may be given with or without the dot.
func New(keep, keepDirs []string, removeSource bool, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Archiver{
		keep:         make(map[string]bool, len(keep)),
		keepDirs:     make(map[string]bool, len(keepDirs)),
		removeSource: removeSource,
		logger:       logger,
	}
	for _, d := range keepDirs {
		if d = strings.Trim(strings.TrimSpace(d), "/"); d != "" {
			a.keepDirs[d] = true
		}
	}
	for _, ext := range keep {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		a.keep[ext] = true
	}
	return a
}

// Keeps reports whether a file named name survives pruning.
func (a *Archiver) Keeps(name string) bool {
	return a.keep[strings.ToLower(filepath.Ext(name))]
}

// keepsFile reports whether the file at rel, relative to the run directory,
// survives pruning. Outputs are written directly into the run directory, so a
// kept extension only counts there; deeper files survive only below a kept
// directory.
func (a *Archiver) keepsFile(rel string) bool {
	if filepath.Dir(rel) == "." {
		return a.Keeps(rel)
	}
	return a.keepsPath(rel)
}

// keepsPath reports whether rel, relative to the run directory, lies below a
// kept directory.
func (a *Archiver) keepsPath(rel string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, p := range parts {
		if a.keepDirs[p] {
			return true
		}
	}
	return false
}

// ZipPath returns the archive path for dir.
func ZipPath(dir string) string {
	return filepath.Clean(dir) + ".zip"
}

// Archive prunes dir, zips what is left into ZipPath(dir) and removes dir.
// A missing dir is not an error: Archive logs it and returns an empty path.
// Failures to delete single items while pruning or removing are logged and
// do not stop the archive.
func (a *Archiver) Archive(dir string) (string, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info("run directory absent, nothing to archive", zap.String("dir", dir))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat run directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	removed, err := a.Prune(dir)
	if err != nil {
		return "", err
	}

	zipPath := ZipPath(dir)
	files, err := writeZip(dir, zipPath)
	if err != nil {
		return "", err
	}

	if a.removeSource {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn("failed to remove run directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	a.logger.Info("run archived",
		zap.String("archive", zipPath),
		zap.Int("files", files),
		zap.Int("pruned", removed))
	return zipPath, nil
}

// Prune deletes, deepest first, every file under dir that is not kept and
// every directory left empty. Subdirectories hold worker intermediates, so
// only top-level outputs and kept directories survive. dir itself is never removed. It
// returns the number of entries deleted.
func (a *Archiver) Prune(dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.logger.Warn("cannot walk entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if path != dir {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	// WalkDir visits parents before children, so the reverse order is bottom-up.
	removed := 0
	for i := len(paths) - 1; i >= 0; i-- {
		path := paths[i]
		info, err := os.Lstat(path)
		if err != nil {
			a.logger.Warn("cannot stat entry", zap.String("path", path), zap.Error(err))
			continue
		}

		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				a.logger.Warn("cannot read directory", zap.String("path", path), zap.Error(err))
				continue
			}
			if len(entries) > 0 {
				continue
			}
		} else if info.Mode().IsRegular() && a.keepsFile(rel(dir, path)) {
			continue
		}

		if err := os.Remove(path); err != nil {
			a.logger.Warn("cannot delete entry", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func rel(base, path string) string {
	r, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return r
}

// writeZip deflates every regular file under dir into zipPath with names
// relative to dir. The archive is written to a temporary file first.
func writeZip(dir, zipPath string) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(zipPath), filepath.Base(zipPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	files := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		files++
		return nil
	})
	if walkErr != nil {
		zw.Close()
		tmp.Close()
		return 0, fmt.Errorf("failed to archive %s: %w", dir, walkErr)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), zipPath); err != nil {
		return 0, fmt.Errorf("failed to move archive into place: %w", err)
	}
	return files, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
