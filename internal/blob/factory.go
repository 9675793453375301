package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver
	Bucket string
	FSRoot string
	S3     S3Config
}

// Open builds the Store named by cfg.Driver. The fs driver nests objects
// under {FSRoot}/{Bucket}.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		root := cfg.FSRoot
		if root == "" {
			root = "./blobdata"
		}
		return NewFilesystem(root + "/" + cfg.Bucket)
	case DriverS3:
		s3cfg := cfg.S3
		s3cfg.Bucket = cfg.Bucket
		return NewS3(ctx, s3cfg)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
