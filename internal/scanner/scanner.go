// Package scanner enumerates the PDFs under a source directory and computes a
// content fingerprint for each of them. It has no side effects.
package scanner

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/pdfindex/pkg/types"
)

// Extension is the only file extension picked up by the scanner (case-insensitive)
const Extension = ".pdf"

// Scan walks dir recursively and returns every PDF keyed by its slash-separated
// path relative to dir. Hidden directories are skipped. Symlinks to regular
// files are followed; symlinked directories are not.
//
// A PDF that cannot be read is left out of files and reported in unreadable
// so the caller can retry it on a later run. Only a missing or unwalkable
// source directory is an error.
func Scan(dir string) (files map[string]types.SourceFile, unreadable []*types.FileError, err error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%w: source directory %s", types.ErrNotFound, dir)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", types.ErrNotFound, dir)
	}

	logger := slog.Default().With("component", "scanner")
	files = make(map[string]types.SourceFile)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories, but never the root itself
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsPDF(path) {
			logger.Debug("document type not supported, skipping", "file", d.Name())
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		regular, err := isRegularFile(path, d)
		if err == nil && !regular {
			return nil
		}

		var file types.SourceFile
		if err == nil {
			file, err = fingerprintFile(path)
		}
		if err != nil {
			logger.Warn("unreadable PDF, skipping", "file", relPath, "err", err)
			unreadable = append(unreadable, &types.FileError{Path: relPath, Err: err})
			return nil
		}
		file.Path = relPath
		files[relPath] = file
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Slice(unreadable, func(i, j int) bool { return unreadable[i].Path < unreadable[j].Path })
	return files, unreadable, nil
}

// isRegularFile resolves symlinks so a linked PDF counts like a plain one
func isRegularFile(path string, d fs.DirEntry) (bool, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsPDF reports whether path carries the PDF extension
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// Paths returns the keys of a scan result in sorted order
func Paths(files map[string]types.SourceFile) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Fingerprints projects a scan result onto path -> fingerprint
func Fingerprints(files map[string]types.SourceFile) map[string]types.Fingerprint {
	out := make(map[string]types.Fingerprint, len(files))
	for p, f := range files {
		out[p] = f.Fingerprint
	}
	return out
}

// fingerprintFile computes the SHA-256 fingerprint of a file
func fingerprintFile(path string) (types.SourceFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.SourceFile{}, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return types.SourceFile{}, err
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return types.SourceFile{}, err
	}

	var sum [32]byte
	copy(sum[:], hash.Sum(nil))

	return types.SourceFile{
		Fingerprint: types.NewFingerprint(sum),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}
