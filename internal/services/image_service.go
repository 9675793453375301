package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/metrics"
	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

// cleanupParallelism bounds concurrent deletes during a cleanup.
const cleanupParallelism = 8

// ImageService stores batch photos under {userId}/{batchId}_{unixMillis}_{filename}.
type ImageService struct {
	Store   blob.Store
	URLs    blob.URLBuilder
	Batches *BatchService
	logger  *zap.Logger
}

func NewImageService(store blob.Store, urls blob.URLBuilder, batches *BatchService, logger *zap.Logger) *ImageService {
	return &ImageService{Store: store, URLs: urls, Batches: batches, logger: logger.Named("images")}
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

// Upload stores the file and appends its URL to the batch. When the batch
// update fails the stored object is removed again.
func (s *ImageService) Upload(ctx context.Context, userID, batchID, filename, contentType string, r io.Reader) (*models.Batch, string, error) {
	name := cleanFilename(filename)
	if name == "" {
		return nil, "", invalid("file name is required")
	}
	if _, err := s.Batches.Get(ctx, userID, batchID); err != nil {
		return nil, "", err
	}

	key := fmt.Sprintf("%s/%s_%d_%s", userID, batchID, timeutil.Now().UnixMilli(), name)
	if _, err := s.Store.Put(ctx, key, r, blob.PutOptions{ContentType: contentType}); err != nil {
		return nil, "", fmt.Errorf("failed to store image: %w", err)
	}
	metrics.Images.WithLabelValues("upload").Inc()

	url := s.URLs.URL(key)
	batch, err := s.Batches.SetImages(ctx, userID, batchID, func(urls []string) []string {
		return append(urls, url)
	})
	if err != nil {
		if _, derr := s.Store.Delete(ctx, key); derr != nil {
			s.logger.Error("failed to remove orphaned image",
				zap.String("key", key), zap.Error(derr))
		} else {
			metrics.Images.WithLabelValues("delete").Inc()
		}
		return nil, "", fmt.Errorf("failed to attach image: %w", err)
	}
	return batch, url, nil
}

// ownKey maps a URL to an object key inside the user's folder.
func (s *ImageService) ownKey(userID, url string) (string, error) {
	key, ok := s.URLs.Key(url)
	if !ok {
		return "", invalid("url is not a %s image", s.URLs.Bucket)
	}
	if !strings.HasPrefix(key, userID+"/") {
		return "", invalid("image belongs to another user")
	}
	return key, nil
}

// Delete removes the object behind url and drops the URL from the batch.
func (s *ImageService) Delete(ctx context.Context, userID, batchID, url string) (*models.Batch, error) {
	key, err := s.ownKey(userID, url)
	if err != nil {
		return nil, err
	}
	if _, err := s.Batches.Get(ctx, userID, batchID); err != nil {
		return nil, err
	}
	if _, err := s.Store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to delete image: %w", err)
	}
	metrics.Images.WithLabelValues("delete").Inc()

	return s.Batches.SetImages(ctx, userID, batchID, func(urls []string) []string {
		kept := urls[:0]
		for _, u := range urls {
			if u != url {
				kept = append(kept, u)
			}
		}
		return kept
	})
}

// CleanupResult summarizes a bulk image cleanup.
type CleanupResult struct {
	Deleted        int `json:"deleted"`
	BatchesUpdated int `json:"batchesUpdated"`
}

// CleanupBefore deletes every object of the user last modified before the
// start of date, then drops the dangling URLs from batches.
func (s *ImageService) CleanupBefore(ctx context.Context, userID, date string) (*CleanupResult, error) {
	limit, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, invalid("before must be YYYY-MM-DD, got %q", date)
	}
	objects, err := s.Store.List(ctx, userID+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var (
		mu      sync.Mutex
		deleted = make(map[string]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupParallelism)
	for _, obj := range objects {
		if !obj.LastModified.Before(limit) {
			continue
		}
		key := obj.Key
		g.Go(func() error {
			if _, err := s.Store.Delete(gctx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			metrics.Images.WithLabelValues("delete").Inc()
			mu.Lock()
			deleted[s.URLs.URL(key)] = true
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()

	// drop references to whatever was removed, even after a partial failure
	updated, err := s.Batches.DropImageURLs(ctx, userID, deleted)
	if err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, fmt.Errorf("failed to delete images: %w", waitErr)
	}

	s.logger.Info("images cleaned up",
		zap.String("user_id", userID), zap.String("before", date),
		zap.Int("deleted", len(deleted)), zap.Int("batches", updated))
	return &CleanupResult{Deleted: len(deleted), BatchesUpdated: updated}, nil
}

// StorageHealth is the result of a bucket probe.
type StorageHealth struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *ImageService) Health(ctx context.Context) StorageHealth {
	if err := s.Store.Ping(ctx); err != nil {
		return StorageHealth{Message: err.Error()}
	}
	return StorageHealth{Success: true, Message: fmt.Sprintf("Bucket %s is active.", s.URLs.Bucket)}
}

// Open streams an object for the public image route.
func (s *ImageService) Open(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	return s.Store.Get(ctx, key)
}
