package blob

import (
	"context"
	"fmt"

	"claimledger/internal/config"
	"claimledger/internal/infra/blob/fs"
	memorystore "claimledger/internal/infra/blob/memory"
	infraS3 "claimledger/internal/infra/blob/s3"
)

// Open selects a Store from configuration. An empty driver selects fs.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverS3:
		store, err := infraS3.New(ctx, infraS3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an empty in-memory Store.
func NewMemory() Store { return memorystore.New() }
