package artifact

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"vectra/internal/export"
	"vectra/internal/logging"
	"vectra/internal/segment"
)

// Renderer is the slice of the export surface the cache drives on a miss.
type Renderer interface {
	RenderSnapshot(width, height int, layers []segment.Layer, f export.Format, o export.Options) ([]byte, error)
}

// Cache serves export artifacts, rendering on miss. Every payload is stamped
// with the model's edit version; a stamp mismatch reads as a miss, so edits
// invalidate without any explicit bookkeeping. Concurrent misses on one key
// collapse into a single render through the flight group.
type Cache struct {
	store    *Store
	renderer Renderer
	group    singleflight.Group
	logger   *slog.Logger
}

func NewCache(store *Store, renderer Renderer, logger *slog.Logger) *Cache {
	return &Cache{
		store:    store,
		renderer: renderer,
		logger:   logging.NewComponentLogger(logger, "artifact-cache"),
	}
}

// GetOrRender returns the artifact for (job, format, options) at the model's
// current edit version, rendering and storing it if absent or stale. Render
// failures are returned to every coalesced caller and never cached.
func (c *Cache) GetOrRender(ctx context.Context, jobID string, model *segment.Model, f export.Format, o export.Options) ([]byte, string, error) {
	o = o.Normalize(f)
	if err := o.Validate(f); err != nil {
		return nil, "", err
	}

	layers, version := model.Snapshot()
	optsKey := o.CacheKey(f)
	if payload, ok, err := c.store.Get(ctx, jobID, string(f), optsKey, version); err != nil {
		return nil, "", err
	} else if ok {
		return payload, f.ContentType(), nil
	}

	flightKey := fmt.Sprintf("%s|%s|%s|%d", jobID, f, optsKey, version)
	result, err, shared := c.group.Do(flightKey, func() (any, error) {
		if payload, ok, err := c.store.Get(ctx, jobID, string(f), optsKey, version); err != nil {
			return nil, err
		} else if ok {
			return payload, nil
		}
		payload, err := c.renderer.RenderSnapshot(model.Width, model.Height, layers, f, o)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(ctx, jobID, string(f), optsKey, version, payload); err != nil {
			return nil, err
		}
		c.logger.Debug("artifact rendered",
			logging.String(logging.FieldJobID, jobID),
			logging.String("format", string(f)),
			logging.Uint64("version", version),
			logging.Int("bytes", len(payload)),
		)
		return payload, nil
	})
	if err != nil {
		return nil, "", err
	}
	if shared {
		c.logger.Debug("render coalesced",
			logging.String(logging.FieldJobID, jobID),
			logging.String("format", string(f)))
	}
	return result.([]byte), f.ContentType(), nil
}

// SeedSVG stores the pipeline's default SVG export so the first download
// needs no render.
func (c *Cache) SeedSVG(jobID string, version uint64, payload []byte) error {
	o := export.Options{}.Normalize(export.FormatSVG)
	return c.store.Put(context.Background(), jobID, string(export.FormatSVG), o.CacheKey(export.FormatSVG), version, payload)
}

// EvictJob drops every cached artifact for the job. Called at disposal.
func (c *Cache) EvictJob(jobID string) error {
	return c.store.EvictJob(context.Background(), jobID)
}
