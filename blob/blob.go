// Package blob stores rendered diagrams. The filesystem store is the default;
// S3 is used only when configured.
package blob

import (
	"context"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/utils"
)

// BlobStore is the interface for pluggable blob storage backends.
type BlobStore interface {
	Put(ctx context.Context, data []byte, mime, filename string) (url string, err error)
	Get(ctx context.Context, url string) ([]byte, error)
}

// NewBlobStoreFromConfig returns the store selected by cfg. A nil or empty
// config gives a filesystem store in the default directory.
func NewBlobStoreFromConfig(ctx context.Context, cfg *config.BlobConfig) (BlobStore, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == constants.BlobDriverFilesystem {
		dir := constants.DefaultBlobDir
		if cfg != nil && cfg.Directory != "" {
			dir = cfg.Directory
		}
		return NewFilesystemBlobStore(dir)
	}
	if cfg.Driver == constants.BlobDriverS3 {
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, utils.Errorf("s3 driver requires bucket and region")
		}
		return NewS3BlobStore(ctx, cfg.Bucket, cfg.Region)
	}
	return nil, utils.Errorf("unsupported blob driver: %s", cfg.Driver)
}
