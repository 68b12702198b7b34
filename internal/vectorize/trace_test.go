package vectorize_test

import (
	"context"
	"strings"
	"testing"

	"vectra/internal/job"
	"vectra/internal/segment"
	"vectra/internal/vectorize"
)

func filledMask(w, h int) *segment.Mask {
	mask := segment.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Set(x, y, true)
		}
	}
	return mask
}

func donutMask(size, holeStart, holeEnd int) *segment.Mask {
	mask := filledMask(size, size)
	for y := holeStart; y < holeEnd; y++ {
		for x := holeStart; x < holeEnd; x++ {
			mask.Set(x, y, false)
		}
	}
	return mask
}

func TestTraceSquareIsOneClosedPolygon(t *testing.T) {
	tracer := vectorize.NewTracer()
	path, err := tracer.Trace(context.Background(), filledMask(4, 4), job.Options{Detail: 5, Smoothing: 0})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if got := strings.Count(path, "M "); got != 1 {
		t.Fatalf("subpaths = %d, want 1 (path %q)", got, path)
	}
	if !strings.HasSuffix(path, "Z") {
		t.Fatalf("path not closed: %q", path)
	}
	if strings.Contains(path, " C ") {
		t.Fatalf("smoothing 0 must emit straight segments, got %q", path)
	}
}

func TestTraceDonutEmitsHoleSubpath(t *testing.T) {
	tracer := vectorize.NewTracer()
	path, err := tracer.Trace(context.Background(), donutMask(6, 2, 4), job.Options{Detail: 5, Smoothing: 0})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if got := strings.Count(path, "M "); got != 2 {
		t.Fatalf("subpaths = %d, want outer contour plus hole (path %q)", got, path)
	}
	if got := strings.Count(path, "Z"); got != 2 {
		t.Fatalf("closed loops = %d, want 2", got)
	}
}

func TestTraceSmoothingEmitsCurves(t *testing.T) {
	tracer := vectorize.NewTracer()
	path, err := tracer.Trace(context.Background(), filledMask(6, 6), job.Options{Detail: 5, Smoothing: 80})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !strings.Contains(path, " C ") {
		t.Fatalf("smoothing 80 produced no curves: %q", path)
	}
}

func TestTraceIsDeterministic(t *testing.T) {
	tracer := vectorize.NewTracer()
	mask := donutMask(8, 3, 5)
	mask.Set(0, 7, false)
	mask.Set(7, 0, false)
	opts := job.Options{Detail: 4, Smoothing: 50, CornerThreshold: 60}

	first, err := tracer.Trace(context.Background(), mask, opts)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	second, err := tracer.Trace(context.Background(), mask, opts)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if first != second {
		t.Fatalf("path data differs between runs:\n%q\n%q", first, second)
	}
}

func TestTraceDropsDegenerateContours(t *testing.T) {
	tracer := vectorize.NewTracer()
	mask := segment.NewMask(8, 8)
	mask.Set(3, 3, true)

	path, err := tracer.Trace(context.Background(), mask, job.Options{Detail: 5, Smoothing: 0})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if path != "" {
		t.Fatalf("single-pixel contour survived: %q", path)
	}
}

func TestTraceEmptyMask(t *testing.T) {
	tracer := vectorize.NewTracer()
	path, err := tracer.Trace(context.Background(), segment.NewMask(4, 4), job.Options{Detail: 3, Smoothing: 0})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if path != "" {
		t.Fatalf("empty mask produced path %q", path)
	}
}
