package vectorize

import (
	"context"

	"vectra/internal/job"
	"vectra/internal/segment"
)

// minPixelShare drops layers reduced to nothing visible by despeckling and
// contour filtering.
const minPixelShare = 0.00001

// Optimizer prunes layers that traced to nothing so the finished model is
// dense: every remaining layer has path data and visible coverage.
type Optimizer struct{}

func NewOptimizer() *Optimizer { return &Optimizer{} }

func (o *Optimizer) Optimize(ctx context.Context, layers []segment.Layer, opts job.Options) ([]segment.Layer, error) {
	out := make([]segment.Layer, 0, len(layers))
	for _, layer := range layers {
		if layer.PathData == "" || layer.PixelShare < minPixelShare {
			continue
		}
		out = append(out, layer)
	}
	return out, nil
}
