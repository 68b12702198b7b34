package vectorize

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// Splitter partitions one layer's mask into spatially compact parts and
// retraces each part's outline. Clustering is a fixed-iteration k-means over
// pixel coordinates with evenly spaced scan-order seeds, so the same mask
// always splits the same way.
type Splitter struct {
	tracer *Tracer
	logger *slog.Logger
}

func NewSplitter(logger *slog.Logger) *Splitter {
	return &Splitter{tracer: NewTracer(), logger: logging.NewComponentLogger(logger, "split")}
}

// splitTraceOpts are the retrace settings for split parts. Submit-time
// options are not carried into edits; medium detail with smoothing keeps the
// part outlines close to the original layer's look.
var splitTraceOpts = job.Options{Detail: 3, Smoothing: 50}

const splitIterations = 20

func (s *Splitter) SplitLayer(layer segment.Layer, parts int) ([]segment.Layer, error) {
	if parts < 2 {
		return nil, services.Wrap(services.ErrValidation, "vectorize", "split", "parts must be at least 2", nil)
	}
	mask := layer.Mask
	if mask == nil {
		return nil, services.Wrap(services.ErrValidation, "vectorize", "split", "layer has no mask", nil)
	}
	var coords [][2]int
	for y := 0; y < mask.H; y++ {
		for x := 0; x < mask.W; x++ {
			if mask.At(x, y) {
				coords = append(coords, [2]int{x, y})
			}
		}
	}
	if len(coords) < parts {
		return nil, services.Wrap(services.ErrValidation, "vectorize", "split",
			fmt.Sprintf("layer covers %d pixels, cannot split into %d parts", len(coords), parts), nil)
	}

	labels := clusterCoords(coords, parts)

	partMasks := make([]*segment.Mask, parts)
	counts := make([]int, parts)
	for i := range partMasks {
		partMasks[i] = segment.NewMask(mask.W, mask.H)
	}
	for i, c := range coords {
		partMasks[labels[i]].Set(c[0], c[1], true)
		counts[labels[i]]++
	}

	out := make([]segment.Layer, 0, parts)
	for i, partMask := range partMasks {
		// A cluster can drain during iteration; a split never emits empty
		// parts.
		if counts[i] == 0 {
			continue
		}
		pathData, err := s.tracer.Trace(context.Background(), partMask, splitTraceOpts)
		if err != nil {
			return nil, err
		}
		out = append(out, segment.Layer{
			Color:      layer.Color,
			PathData:   pathData,
			Mask:       partMask,
			PixelShare: layer.PixelShare * float64(counts[i]) / float64(len(coords)),
		})
	}
	s.logger.Debug("layer split",
		logging.Int("parts", len(out)),
		logging.Int("pixels", len(coords)),
	)
	return out, nil
}

// clusterCoords assigns each coordinate to one of k spatial clusters. Seeds
// are evenly spaced in scan order and nearest-center ties go to the lowest
// cluster index, keeping the partition deterministic for a given mask.
func clusterCoords(coords [][2]int, k int) []int {
	centers := make([][2]float64, k)
	for i := 0; i < k; i++ {
		c := coords[i*len(coords)/k]
		centers[i] = [2]float64{float64(c[0]), float64(c[1])}
	}

	labels := make([]int, len(coords))
	for iter := 0; iter < splitIterations; iter++ {
		changed := false
		for i, c := range coords {
			best := 0
			bestDist := math.MaxFloat64
			for j, center := range centers {
				dx := float64(c[0]) - center[0]
				dy := float64(c[1]) - center[1]
				if d := dx*dx + dy*dy; d < bestDist {
					bestDist = d
					best = j
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sumX := make([]float64, k)
		sumY := make([]float64, k)
		counts := make([]int, k)
		for i, c := range coords {
			sumX[labels[i]] += float64(c[0])
			sumY[labels[i]] += float64(c[1])
			counts[labels[i]]++
		}
		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				centers[j] = [2]float64{sumX[j] / float64(counts[j]), sumY[j] / float64(counts[j])}
			}
		}
	}
	return labels
}
