package vectorize_test

import (
	"context"
	"testing"

	"vectra/internal/job"
	"vectra/internal/segment"
	"vectra/internal/vectorize"
)

func TestOptimizeDropsPathlessLayers(t *testing.T) {
	o := vectorize.NewOptimizer()
	layers := []segment.Layer{
		{Color: "#ff0000", PathData: "M 0 0 L 1 0 L 1 1 Z", PixelShare: 0.5},
		{Color: "#00ff00", PathData: "", PixelShare: 0.3},
		{Color: "#0000ff", PathData: "M 0 0 L 2 0 L 2 2 Z", PixelShare: 0.0},
	}

	out, err := o.Optimize(context.Background(), layers, job.Options{Detail: 3})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("layers = %d, want 1", len(out))
	}
	if out[0].Color != "#ff0000" {
		t.Fatalf("surviving layer = %s, want #ff0000", out[0].Color)
	}
}
