package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache stores fetched series between runs of the same day
type Cache interface {
	Load(ctx context.Context, key string) (Series, bool, error)
	Save(ctx context.Context, key string, series Series) error
}

// CacheKey builds the cache key for a ticker at an interval
func CacheKey(ticker, interval string) string {
	return fmt.Sprintf("%s_%s", ticker, interval)
}

// CacheMetadata stores metadata about cached data
type CacheMetadata struct {
	Key         string    `json:"key"`
	PullDate    time.Time `json:"pull_date"`    // Date when data was pulled
	SampleCount int       `json:"sample_count"` // Number of samples in cache
}

// FileCache keeps one JSON file per key plus a metadata file
type FileCache struct {
	cacheDir string
	now      func() time.Time
}

// NewFileCache creates a new file cache
func NewFileCache(cacheDir string) *FileCache {
	if cacheDir == "" {
		cacheDir = "data/cache"
	}
	return &FileCache{
		cacheDir: cacheDir,
		now:      time.Now,
	}
}

// GetCachePath returns the cache file path for a key
func (fc *FileCache) GetCachePath(key string) string {
	return filepath.Join(fc.cacheDir, fmt.Sprintf("%s.json", key))
}

// GetMetadataPath returns the metadata file path for a key
func (fc *FileCache) GetMetadataPath(key string) string {
	return filepath.Join(fc.cacheDir, fmt.Sprintf("%s_metadata.json", key))
}

// Load returns the cached series if it was pulled today.
// A missing, stale or unreadable cache is a miss, not an error.
func (fc *FileCache) Load(_ context.Context, key string) (Series, bool, error) {
	metadataBytes, err := os.ReadFile(fc.GetMetadataPath(key))
	if err != nil {
		return nil, false, nil
	}

	var metadata CacheMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, false, nil
	}

	// Check if cache is from today
	y1, m1, d1 := fc.now().Date()
	y2, m2, d2 := metadata.PullDate.In(fc.now().Location()).Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return nil, false, nil
	}

	dataBytes, err := os.ReadFile(fc.GetCachePath(key))
	if err != nil {
		return nil, false, nil
	}

	var series Series
	if err := json.Unmarshal(dataBytes, &series); err != nil {
		return nil, false, nil
	}
	return series, true, nil
}

// Save writes series and its metadata to the cache directory
func (fc *FileCache) Save(_ context.Context, key string, series Series) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	dataBytes, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := os.WriteFile(fc.GetCachePath(key), dataBytes, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	metadata := CacheMetadata{
		Key:         key,
		PullDate:    fc.now(),
		SampleCount: len(series),
	}
	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(fc.GetMetadataPath(key), metadataBytes, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}
