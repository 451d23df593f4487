// pkg/download/download.go - streaming downloads with optional integrity
// verification.

package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const chunkSize = 8192

// ChecksumError reports a SHA-256 mismatch. The downloaded artifact has
// already been deleted by the time this is returned.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Client downloads files into a fixed destination directory.
type Client struct {
	HTTPClient *http.Client
	Dir        string
}

// New returns a Client writing into dir. The timeout bounds the whole
// request, response headers included.
func New(dir string, timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Dir:        dir,
	}
}

// Fetch streams url into Dir/filename. When expectedChecksum is non-empty a
// running SHA-256 digest is computed over the stream and compared
// case-insensitively on completion; on mismatch the artifact is deleted and
// a *ChecksumError returned. When it is empty no digest is computed at all.
// An existing file of the same name is overwritten, not merged.
//
// progress, if non-nil, is called with (downloaded, total) as chunks arrive;
// total is -1 when the server sent no Content-Length.
func (c *Client) Fetch(url, filename, expectedChecksum string, progress func(downloaded, total int64)) (string, error) {
	if url == "" {
		return "", fmt.Errorf("invalid parameters: url cannot be empty")
	}
	if filename == "" {
		return "", fmt.Errorf("invalid parameters: filename cannot be empty")
	}

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(c.Dir, filename)

	log.Debugf("Downloading %s to %s", url, dest)

	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to open destination file: %w", err)
	}

	var hasher hash.Hash
	expectedChecksum = strings.TrimSpace(expectedChecksum)
	if expectedChecksum != "" {
		hasher = sha256.New()
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(dest)
				return "", fmt.Errorf("failed to write downloaded data: %w", werr)
			}
			if hasher != nil {
				hasher.Write(buf[:n])
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dest)
			return "", fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to finalize downloaded file: %w", err)
	}

	if hasher != nil {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, expectedChecksum) {
			os.Remove(dest)
			return "", &ChecksumError{Expected: expectedChecksum, Actual: actual}
		}
	}

	log.Debugf("Download completed: %s (%d bytes)", dest, downloaded)
	return dest, nil
}

// FileSHA256 returns the hex-encoded SHA-256 digest of a file on disk.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify checks if the given file matches the expected hash.
func Verify(file string, expectedHash string) bool {
	actual, err := FileSHA256(file)
	if err != nil {
		return false
	}
	return strings.EqualFold(actual, expectedHash)
}
