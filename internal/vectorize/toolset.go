package vectorize

import (
	"log/slog"

	"vectra/internal/export"
	"vectra/internal/pipeline"
)

// DefaultToolset wires the production stage implementations into a pipeline
// toolset.
func DefaultToolset(logger *slog.Logger) pipeline.Toolset {
	return pipeline.Toolset{
		Preprocessor: NewPreprocessor(logger),
		Quantizer:    NewQuantizer(logger),
		Segmenter:    NewSegmenter(logger),
		Tracer:       NewTracer(),
		Optimizer:    NewOptimizer(),
		Renderer:     export.NewRenderer(),
	}
}
