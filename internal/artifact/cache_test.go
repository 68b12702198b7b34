package artifact_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vectra/internal/artifact"
	"vectra/internal/export"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// countingRenderer stamps each payload with its render ordinal so tests can
// tell a cache hit from a fresh render.
type countingRenderer struct {
	mu    sync.Mutex
	count int
	delay time.Duration
	fail  bool
}

func (r *countingRenderer) RenderSnapshot(width, height int, layers []segment.Layer, f export.Format, o export.Options) ([]byte, error) {
	r.mu.Lock()
	r.count++
	n := r.count
	fail := r.fail
	r.fail = false
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if fail {
		return nil, errors.New("render exploded")
	}
	return []byte(fmt.Sprintf("render-%d-%s", n, f)), nil
}

func (r *countingRenderer) renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func newCache(t *testing.T, renderer artifact.Renderer) *artifact.Cache {
	t.Helper()
	store, err := artifact.OpenStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return artifact.NewCache(store, renderer, logging.NewNop())
}

func testModel() *segment.Model {
	return segment.NewModel(4, 4, []segment.Layer{
		{Color: "#112233", PathData: "M 0 0 L 4 0 L 4 4 L 0 4 Z", PixelShare: 1},
	})
}

func TestGetOrRenderCachesByKey(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	model := testModel()

	first, contentType, err := cache.GetOrRender(context.Background(), "cache-hit", model, export.FormatPNG, export.Options{Resolution: 2})
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %s", contentType)
	}
	second, _, err := cache.GetOrRender(context.Background(), "cache-hit", model, export.FormatPNG, export.Options{Resolution: 2})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("cache hit returned a different payload")
	}
	if renderer.renders() != 1 {
		t.Fatalf("renders = %d, want 1", renderer.renders())
	}
}

func TestDistinctOptionsGetDistinctSlots(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	model := testModel()

	if _, _, err := cache.GetOrRender(context.Background(), "cache-opts", model, export.FormatPNG, export.Options{Resolution: 1}); err != nil {
		t.Fatalf("render r=1: %v", err)
	}
	if _, _, err := cache.GetOrRender(context.Background(), "cache-opts", model, export.FormatPNG, export.Options{Resolution: 2}); err != nil {
		t.Fatalf("render r=2: %v", err)
	}
	if renderer.renders() != 2 {
		t.Fatalf("renders = %d, want 2", renderer.renders())
	}
}

func TestEditInvalidatesCachedArtifact(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	model := testModel()

	if _, _, err := cache.GetOrRender(context.Background(), "cache-stale", model, export.FormatSVG, export.Options{}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if err := model.Recolor(0, "#ff0000"); err != nil {
		t.Fatalf("recolor: %v", err)
	}
	if _, _, err := cache.GetOrRender(context.Background(), "cache-stale", model, export.FormatSVG, export.Options{}); err != nil {
		t.Fatalf("post-edit render: %v", err)
	}
	if renderer.renders() != 2 {
		t.Fatalf("renders = %d, want 2 (edit must invalidate)", renderer.renders())
	}
}

func TestConcurrentMissesCoalesceIntoOneRender(t *testing.T) {
	renderer := &countingRenderer{delay: 50 * time.Millisecond}
	cache := newCache(t, renderer)
	model := testModel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := cache.GetOrRender(context.Background(), "cache-flight", model, export.FormatPNG, export.Options{}); err != nil {
				t.Errorf("coalesced render: %v", err)
			}
		}()
	}
	wg.Wait()

	if renderer.renders() != 1 {
		t.Fatalf("renders = %d, want 1 coalesced render", renderer.renders())
	}
}

func TestRenderFailureIsNotCached(t *testing.T) {
	renderer := &countingRenderer{fail: true}
	cache := newCache(t, renderer)
	model := testModel()

	if _, _, err := cache.GetOrRender(context.Background(), "cache-fail", model, export.FormatSVG, export.Options{}); err == nil {
		t.Fatal("expected first render to fail")
	}
	payload, _, err := cache.GetOrRender(context.Background(), "cache-fail", model, export.FormatSVG, export.Options{})
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("retry returned empty payload")
	}
	if renderer.renders() != 2 {
		t.Fatalf("renders = %d, want 2", renderer.renders())
	}
}

func TestSeedSVGServesWithoutRender(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	model := testModel()

	seeded := []byte("<svg>seeded</svg>")
	if err := cache.SeedSVG("cache-seed", model.Version(), seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}
	payload, contentType, err := cache.GetOrRender(context.Background(), "cache-seed", model, export.FormatSVG, export.Options{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if contentType != "image/svg+xml" {
		t.Fatalf("content type = %s", contentType)
	}
	if !bytes.Equal(payload, seeded) {
		t.Fatalf("payload = %q, want seeded document", payload)
	}
	if renderer.renders() != 0 {
		t.Fatalf("renders = %d, want 0", renderer.renders())
	}
}

func TestEvictJobDropsArtifacts(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	model := testModel()

	if _, _, err := cache.GetOrRender(context.Background(), "cache-evict", model, export.FormatSVG, export.Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := cache.EvictJob("cache-evict"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if _, _, err := cache.GetOrRender(context.Background(), "cache-evict", model, export.FormatSVG, export.Options{}); err != nil {
		t.Fatalf("render after evict: %v", err)
	}
	if renderer.renders() != 2 {
		t.Fatalf("renders = %d, want 2 after eviction", renderer.renders())
	}
}

func TestGetOrRenderValidatesOptions(t *testing.T) {
	renderer := &countingRenderer{}
	cache := newCache(t, renderer)
	_, _, err := cache.GetOrRender(context.Background(), "cache-bad", testModel(), export.FormatPNG, export.Options{Resolution: 9})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if renderer.renders() != 0 {
		t.Fatalf("invalid options triggered %d renders", renderer.renders())
	}
}
