package pipeline

import (
	"context"
	"image"
	"image/color"

	"vectra/internal/job"
	"vectra/internal/segment"
)

// Raster is the decoded, preprocessed source image handed to quantization.
type Raster struct {
	Image *image.NRGBA
	// Mode is the resolved conversion mode: "auto" submissions are pinned to
	// a concrete mode during preprocessing.
	Mode string
}

// Quantized is the palette assignment produced by the quantizer.
type Quantized struct {
	Width   int
	Height  int
	Palette []color.NRGBA
	// Labels maps each pixel (row-major) to a palette index, or -1 for
	// pixels removed by background stripping.
	Labels []int16
}

// Preprocessor decodes source bytes and prepares them for quantization.
type Preprocessor interface {
	Preprocess(ctx context.Context, source []byte, opts job.Options) (*Raster, error)
}

// Quantizer reduces a raster to a bounded palette. Implementations must be
// deterministic: identical input bytes and options yield the identical
// palette, including the auto-selected color count.
type Quantizer interface {
	Quantize(ctx context.Context, raster *Raster, opts job.Options) (*Quantized, error)
}

// Segmenter groups quantized pixels into per-color layer masks ordered by
// coverage.
type Segmenter interface {
	Segment(ctx context.Context, quantized *Quantized, opts job.Options) ([]segment.Layer, error)
}

// Tracer converts one layer mask into SVG path data. The algorithm is an
// opaque collaborator; the pipeline depends only on its determinism and its
// declared failure mode.
type Tracer interface {
	Trace(ctx context.Context, mask *segment.Mask, opts job.Options) (string, error)
}

// Optimizer cleans traced path data in place (coordinate rounding, empty
// layer pruning).
type Optimizer interface {
	Optimize(ctx context.Context, layers []segment.Layer, opts job.Options) ([]segment.Layer, error)
}

// SVGRenderer produces the default export attached to a finished job.
type SVGRenderer interface {
	RenderSVG(model *segment.Model) ([]byte, error)
}

// Toolset bundles the stage collaborators the runner composes.
type Toolset struct {
	Preprocessor Preprocessor
	Quantizer    Quantizer
	Segmenter    Segmenter
	Tracer       Tracer
	Optimizer    Optimizer
	Renderer     SVGRenderer
}
