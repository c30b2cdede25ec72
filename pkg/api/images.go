package api

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"car-service/pkg/events"
	"car-service/pkg/model"
	"car-service/pkg/store"
	"car-service/pkg/tracker"
)

const allViewersKey = "*"

// ImageCache memoizes visible-image lists per customer for a short TTL. Any
// image change flushes it; a stale hit is bounded by the TTL when the change
// happened in another process. A zero TTL disables caching.
type ImageCache struct {
	svc   *tracker.Service
	cache *gocache.Cache
}

func NewImageCache(svc *tracker.Service, ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		return &ImageCache{svc: svc}
	}
	return &ImageCache{svc: svc, cache: gocache.New(ttl, 2*ttl)}
}

// Visible returns the shared images the customer may see ("" lists all).
func (c *ImageCache) Visible(ctx context.Context, customerID string) ([]model.SharedImage, error) {
	if c.cache == nil {
		return c.svc.VisibleImages(ctx, customerID)
	}
	key := customerID
	if key == "" {
		key = allViewersKey
	}
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.SharedImage), nil
	}
	list, err := c.svc.VisibleImages(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, list)
	return list, nil
}

// Flush drops every cached list.
func (c *ImageCache) Flush() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

// Invalidate flushes the cache on image and storage events until ctx is done.
func (c *ImageCache) Invalidate(ctx context.Context, bus *events.Bus) {
	if c.cache == nil {
		return
	}
	ch, cancel := bus.Subscribe(64)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				// an empty key comes from a remote writer and may touch anything
				if ev.Kind == events.KindImage || ev.Kind == events.KindStorage && (ev.Key == "" || ev.Key == store.ImagesKey) {
					c.Flush()
				}
			}
		}
	}()
}
