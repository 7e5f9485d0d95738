package feed

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_RoundTripSameDay(t *testing.T) {
	fc := NewFileCache(t.TempDir())
	now := time.Date(2020, 5, 29, 12, 0, 0, 0, time.UTC)
	fc.now = func() time.Time { return now }

	series := Series{at(0, 1.5), at(5, 2.25)}
	require.NoError(t, fc.Save(context.Background(), "AMD_5min", series))

	got, ok, err := fc.Load(context.Background(), "AMD_5min")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, series.Closes(), got.Closes())
	assert.True(t, series[1].Time.Equal(got[1].Time))

	now = now.AddDate(0, 0, 1)
	_, ok, err = fc.Load(context.Background(), "AMD_5min")
	require.NoError(t, err)
	assert.False(t, ok, "stale cache is a miss")
}

func TestFileCache_MissingAndCorrupt(t *testing.T) {
	fc := NewFileCache(t.TempDir())

	_, ok, err := fc.Load(context.Background(), "NONE")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fc.Save(context.Background(), "BAD", Series{at(0, 1)}))
	require.NoError(t, os.WriteFile(fc.GetCachePath("BAD"), []byte("{"), 0644))
	_, ok, err = fc.Load(context.Background(), "BAD")
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingSource struct {
	calls  int
	series Series
	err    error
}

func (c *countingSource) Intraday(context.Context, string) (Series, error) {
	c.calls++
	return c.series, c.err
}

type memCache struct {
	data    map[string]Series
	loadErr error
	saveErr error
}

func (m *memCache) Load(_ context.Context, key string) (Series, bool, error) {
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	s, ok := m.data[key]
	return s, ok, nil
}

func (m *memCache) Save(_ context.Context, key string, s Series) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = s
	return nil
}

func TestCachedFeed_FetchesOnceThenHits(t *testing.T) {
	src := &countingSource{series: Series{at(0, 1)}}
	cache := &memCache{data: map[string]Series{}}
	cf := NewCachedFeed(src, cache, "5min", zerolog.Nop())

	for i := 0; i < 3; i++ {
		got, err := cf.Intraday(context.Background(), "GE")
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, got.Closes())
	}
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, cache.data, CacheKey("GE", "5min"))
}

func TestCachedFeed_DegradesOnCacheErrors(t *testing.T) {
	src := &countingSource{series: Series{at(0, 1)}}
	cache := &memCache{data: map[string]Series{}, loadErr: errors.New("down"), saveErr: errors.New("down")}
	cf := NewCachedFeed(src, cache, "5min", zerolog.Nop())

	got, err := cf.Intraday(context.Background(), "GE")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, src.calls)
}

func TestCachedFeed_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	rc := NewRedisCacheWithClient(client, 0)
	defer rc.Close()

	_, _, err := rc.Load(context.Background(), "GE_5min")
	assert.Error(t, err)

	src := &countingSource{series: Series{at(0, 1)}}
	cf := NewCachedFeed(src, rc, "5min", zerolog.Nop())

	got, err := cf.Intraday(context.Background(), "GE")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got.Closes())
	assert.Equal(t, 1, src.calls)
}

func TestCachedFeed_SourceErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("rate limited")}
	cache := &memCache{data: map[string]Series{}}
	cf := NewCachedFeed(src, cache, "5min", zerolog.Nop())

	_, err := cf.Intraday(context.Background(), "GE")
	assert.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{"KO": Series{at(0, 50)}}

	got, err := src.Intraday(context.Background(), "KO")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = src.Intraday(context.Background(), "PEP")
	assert.Error(t, err)
}
