package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// Stage names in execution order.
const (
	StagePreprocess = "preprocess"
	StageQuantize   = "quantize"
	StageSegment    = "segment"
	StageTrace      = "trace"
	StageOptimize   = "optimize"
	StageExport     = "export"
)

// stageWeights is the fixed progress span of each stage. The table sums to
// 100; a stage reports completion of its whole span, keeping progress
// monotonic and repeatable for identical inputs.
var stageWeights = []struct {
	name   string
	weight int
}{
	{StagePreprocess, 5},
	{StageQuantize, 15},
	{StageSegment, 25},
	{StageTrace, 35},
	{StageOptimize, 10},
	{StageExport, 10},
}

// Runner executes the fixed stage sequence for one job. Stage boundaries are
// the only points where progress is reported and cancellation is observed.
type Runner struct {
	tools  Toolset
	logger *slog.Logger
}

// NewRunner constructs a pipeline runner around the provided toolset.
func NewRunner(tools Toolset, logger *slog.Logger) *Runner {
	return &Runner{tools: tools, logger: logging.NewComponentLogger(logger, "pipeline")}
}

type runState struct {
	raster    *Raster
	quantized *Quantized
	layers    []segment.Layer
	model     *segment.Model
	svg       []byte
}

// Run executes all stages for a single job and returns the finished segment
// model plus its default SVG export. The report callback is invoked after
// each completed stage with the stage name and cumulative progress; it is
// never called after an error. A context cancellation surfaces as
// context.Canceled so the caller can distinguish cancel from failure.
// Cancellation is observed only before each stage starts: a cancel that
// lands while the final export stage is running has no boundary left to
// stop at, so the run completes and returns its result.
func (r *Runner) Run(ctx context.Context, source []byte, opts job.Options, report job.ProgressFunc) (*job.Result, error) {
	state := &runState{}
	start := time.Now()
	progress := 0

	for _, entry := range stageWeights {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stageStart := time.Now()
		if err := r.runStage(ctx, entry.name, state, source, opts); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, context.Canceled
			}
			r.logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldStage, entry.name),
				logging.Error(err),
			)
			return nil, &job.StageError{
				Stage: entry.name,
				Err:   services.Wrap(services.ErrStageFailure, "pipeline", entry.name, "stage failed", err),
			}
		}

		progress += entry.weight
		if report != nil {
			report(entry.name, progress)
		}
		r.logger.Debug("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String(logging.FieldStage, entry.name),
			logging.Int("progress", progress),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	r.logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("layers", state.model.LayerCount()),
		logging.Duration("duration", time.Since(start)),
	)
	return &job.Result{Model: state.model, SVG: state.svg}, nil
}

func (r *Runner) runStage(ctx context.Context, name string, state *runState, source []byte, opts job.Options) error {
	switch name {
	case StagePreprocess:
		raster, err := r.tools.Preprocessor.Preprocess(ctx, source, opts)
		if err != nil {
			return err
		}
		state.raster = raster
		return nil
	case StageQuantize:
		quantized, err := r.tools.Quantizer.Quantize(ctx, state.raster, opts)
		if err != nil {
			return err
		}
		state.quantized = quantized
		return nil
	case StageSegment:
		layers, err := r.tools.Segmenter.Segment(ctx, state.quantized, opts)
		if err != nil {
			return err
		}
		state.layers = layers
		return nil
	case StageTrace:
		for i := range state.layers {
			pathData, err := r.tools.Tracer.Trace(ctx, state.layers[i].Mask, opts)
			if err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
			state.layers[i].PathData = pathData
		}
		return nil
	case StageOptimize:
		layers, err := r.tools.Optimizer.Optimize(ctx, state.layers, opts)
		if err != nil {
			return err
		}
		state.layers = layers
		state.model = segment.NewModel(state.quantized.Width, state.quantized.Height, state.layers)
		return nil
	case StageExport:
		svg, err := r.tools.Renderer.RenderSVG(state.model)
		if err != nil {
			return err
		}
		state.svg = svg
		return nil
	default:
		return fmt.Errorf("unknown stage %q", name)
	}
}
