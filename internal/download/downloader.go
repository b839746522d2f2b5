package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBytes bounds the memory held by finished videos.
const DefaultMaxBytes = 256 << 20

var ErrEmptyURL = errors.New("empty video url")

// Source loads video bytes on a cache miss.
type Source interface {
	FetchVideo(ctx context.Context, videoURL string) ([]byte, error)
}

// Downloader serves finished videos for the save action. Bytes are kept in a
// cost-bounded ristretto cache keyed by URL, so saving the same drama twice
// downloads it once.
type Downloader struct {
	cache *cache.LoadableCache[[]byte]
	log   *logrus.Entry
}

func New(src Source, maxBytes int64) (*Downloader, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	log := logrus.WithField("component", "download")
	load := func(ctx context.Context, key any) ([]byte, []store.Option, error) {
		videoURL, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid key type for video cache: %T", key)
		}
		log.WithField("url", videoURL).Debug("cache miss, fetching video")
		data, err := src.FetchVideo(ctx, videoURL)
		if err != nil {
			return nil, nil, err
		}
		return data, []store.Option{store.WithCost(int64(len(data)))}, nil
	}

	return &Downloader{
		cache: cache.NewLoadable[[]byte](load, cache.New[[]byte](ristretto_store.NewRistretto(rc))),
		log:   log,
	}, nil
}

// Fetch returns the video bytes at videoURL.
func (d *Downloader) Fetch(ctx context.Context, videoURL string) ([]byte, error) {
	if videoURL == "" {
		return nil, ErrEmptyURL
	}
	data, err := d.cache.Get(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	return data, nil
}

func (d *Downloader) Close() error {
	return d.cache.Close()
}
