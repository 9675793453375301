// Package blob stores batch photos behind a small S3-like interface with
// s3, filesystem and in-memory drivers.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is implemented by every driver. Keys are slash separated and
// relative to the configured bucket.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// Ping checks that the bucket (or root) is reachable.
	Ping(ctx context.Context) error
	Driver() Driver
}

// ErrNotFound is returned by Get and Head for missing keys.
var ErrNotFound = errors.New("blob: not found")

// ErrExists is returned by Put when the key is taken.
var ErrExists = errors.New("blob: already exists")

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// URLBuilder maps object keys to public URLs of the form
// {base}/{bucket}/{key} and back.
type URLBuilder struct {
	Base   string
	Bucket string
}

// URL returns the public URL of key.
func (u URLBuilder) URL(key string) string {
	return strings.TrimRight(u.Base, "/") + "/" + u.Bucket + "/" + key
}

// Key extracts the object key from a URL built by URL: everything after the
// first "{bucket}/". Query strings are dropped.
func (u URLBuilder) Key(url string) (string, bool) {
	marker := u.Bucket + "/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", false
	}
	key := url[i+len(marker):]
	if q := strings.IndexByte(key, '?'); q >= 0 {
		key = key[:q]
	}
	if key == "" {
		return "", false
	}
	return key, true
}
