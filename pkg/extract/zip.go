// pkg/extract/zip.go - zip archive extraction.

package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BadArchiveError reports a payload that is not a valid zip archive. It is
// distinct from network and checksum failures so the log taxonomy can tell
// them apart.
type BadArchiveError struct {
	Path string
	Err  error
}

func (e *BadArchiveError) Error() string {
	return fmt.Sprintf("%s is not a valid zip archive: %v", e.Path, e.Err)
}

func (e *BadArchiveError) Unwrap() error { return e.Err }

// ExtractZip extracts the entire archive into destDir, creating it if
// needed. Existing files are overwritten, so re-extracting an archive into
// the same directory reflects the new archive's contents.
func ExtractZip(archive, destDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return &BadArchiveError{Path: archive, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractFile(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(f.Name))

	// Reject entries that would escape the destination directory.
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}
