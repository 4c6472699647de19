package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awantoch/scriptflow/utils"
)

const fileURLPrefix = "file://"

// FilesystemBlobStore keeps blobs as files in one directory.
type FilesystemBlobStore struct {
	dir string
}

// NewFilesystemBlobStore creates the directory if needed.
func NewFilesystemBlobStore(dir string) (*FilesystemBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemBlobStore{dir: dir}, nil
}

// Put writes data atomically and returns a file:// URL. An empty filename
// gets a timestamped one; filenames may not contain directories.
func (f *FilesystemBlobStore) Put(ctx context.Context, data []byte, mime, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filename == "" {
		filename = fmt.Sprintf("blob-%d", time.Now().UnixNano())
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", utils.Errorf("invalid blob filename: %s", filename)
	}
	path := filepath.Join(f.dir, filename)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return fileURLPrefix + path, nil
}

// Get reads the blob behind a file:// URL.
func (f *FilesystemBlobStore) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(url, fileURLPrefix) {
		return nil, utils.Errorf("invalid file URL: %s", url)
	}
	return os.ReadFile(strings.TrimPrefix(url, fileURLPrefix))
}
