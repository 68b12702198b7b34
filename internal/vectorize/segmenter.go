package vectorize

import (
	"context"
	"log/slog"
	"sort"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/segment"
)

// Segmenter turns the quantized labeling into per-color layer masks, removes
// speckles below the configured pixel count, and orders layers by coverage.
type Segmenter struct {
	logger *slog.Logger
}

func NewSegmenter(logger *slog.Logger) *Segmenter {
	return &Segmenter{logger: logging.NewComponentLogger(logger, "segment")}
}

func (s *Segmenter) Segment(ctx context.Context, quantized *pipeline.Quantized, opts job.Options) ([]segment.Layer, error) {
	w, h := quantized.Width, quantized.Height
	masks := make([]*segment.Mask, len(quantized.Palette))
	counts := make([]int, len(quantized.Palette))

	for i, label := range quantized.Labels {
		if label < 0 {
			continue
		}
		if masks[label] == nil {
			masks[label] = segment.NewMask(w, h)
		}
		masks[label].Set(i%w, i/w, true)
		counts[label]++
	}

	total := w * h
	layers := make([]segment.Layer, 0, len(quantized.Palette))
	for label, mask := range masks {
		if mask == nil {
			continue
		}
		if opts.Despeckle > 1 {
			despeckle(mask, opts.Despeckle)
		}
		count := mask.Count()
		if count == 0 {
			continue
		}
		layers = append(layers, segment.Layer{
			Color:      segment.FormatColor(quantized.Palette[label]),
			Mask:       mask,
			PixelShare: float64(count) / float64(total),
		})
	}

	// Largest coverage first; color string breaks ties so order is stable.
	sort.SliceStable(layers, func(i, j int) bool {
		if layers[i].PixelShare != layers[j].PixelShare {
			return layers[i].PixelShare > layers[j].PixelShare
		}
		return layers[i].Color < layers[j].Color
	})

	s.logger.Debug("layers segmented",
		logging.Int("layers", len(layers)),
		logging.Int("despeckle", opts.Despeckle),
	)
	return layers, nil
}

// despeckle clears 4-connected components smaller than minPixels.
func despeckle(mask *segment.Mask, minPixels int) {
	w, h := mask.W, mask.H
	seen := make([]bool, w*h)
	stack := make([]int, 0, 256)
	component := make([]int, 0, 256)

	for start := 0; start < w*h; start++ {
		if seen[start] || !mask.At(start%w, start/w) {
			continue
		}
		stack = append(stack[:0], start)
		component = component[:0]
		seen[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, idx)
			x, y := idx%w, idx/w
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if !seen[nidx] && mask.At(nx, ny) {
					seen[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}
		if len(component) < minPixels {
			for _, idx := range component {
				mask.Set(idx%w, idx/w, false)
			}
		}
	}
}
