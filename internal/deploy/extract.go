// internal/deploy/extract.go
//
// Archive extraction.
//
// Context
// -------
// The state machine consumes extraction through the small Extractor
// interface so tests can swap in fakes and a future format (tar.gz) can
// slot in beside zip.  ZipExtractor is the production implementation.
//
// Every entry path is containment-checked against the destination before
// any byte is written; a hostile archive ("../../etc/passwd" entries)
// fails the whole extraction.  Symlink entries are rejected outright for
// the same reason: the serving path resolves symlinks, and a link
// pointing outside the site root would turn every request into a
// traversal attempt.
package deploy

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor unpacks archivePath into destDir and returns the extraction
// root.  Implementations must not leave partial output behind on error
// beyond what they report; the caller removes destDir regardless.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) (string, error)
}

// ZipExtractor extracts zip archives with containment checks.
type ZipExtractor struct{}

// Extract unpacks the zip at archivePath into destDir.
func (ZipExtractor) Extract(ctx context.Context, archivePath, destDir string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := extractEntry(f, destDir); err != nil {
			return "", err
		}
	}
	return destDir, nil
}

func extractEntry(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	switch {
	case mode.IsDir():
		return os.MkdirAll(target, 0o755)
	case mode&os.ModeSymlink != 0:
		return fmt.Errorf("archive entry %q is a symlink", f.Name)
	case !mode.IsRegular():
		return fmt.Errorf("archive entry %q has unsupported type", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("write entry %q: %w", f.Name, err)
	}
	return out.Close()
}

// safeJoin joins name under dir and rejects anything that escapes it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}
