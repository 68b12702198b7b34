package pipeline_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/segment"
)

type stubTools struct {
	failStage string
	cancelAt  string
	cancel    context.CancelFunc
}

func (s *stubTools) maybeStop(stage string) error {
	if s.failStage == stage {
		return errors.New(stage + " exploded")
	}
	if s.cancelAt == stage && s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *stubTools) Preprocess(ctx context.Context, source []byte, opts job.Options) (*pipeline.Raster, error) {
	if err := s.maybeStop(pipeline.StagePreprocess); err != nil {
		return nil, err
	}
	return &pipeline.Raster{Image: image.NewNRGBA(image.Rect(0, 0, 2, 2)), Mode: job.ModeLogo}, nil
}

func (s *stubTools) Quantize(ctx context.Context, raster *pipeline.Raster, opts job.Options) (*pipeline.Quantized, error) {
	if err := s.maybeStop(pipeline.StageQuantize); err != nil {
		return nil, err
	}
	return &pipeline.Quantized{
		Width: 2, Height: 2,
		Palette: []color.NRGBA{{R: 1, G: 2, B: 3, A: 255}},
		Labels:  []int16{0, 0, 0, 0},
	}, nil
}

func (s *stubTools) Segment(ctx context.Context, q *pipeline.Quantized, opts job.Options) ([]segment.Layer, error) {
	if err := s.maybeStop(pipeline.StageSegment); err != nil {
		return nil, err
	}
	mask := segment.NewMask(2, 2)
	mask.Set(0, 0, true)
	return []segment.Layer{{Color: "#010203", Mask: mask, PixelShare: 0.25}}, nil
}

func (s *stubTools) Trace(ctx context.Context, mask *segment.Mask, opts job.Options) (string, error) {
	if err := s.maybeStop(pipeline.StageTrace); err != nil {
		return "", err
	}
	return "M 0 0 L 1 0 L 1 1 L 0 1 Z", nil
}

func (s *stubTools) Optimize(ctx context.Context, layers []segment.Layer, opts job.Options) ([]segment.Layer, error) {
	if err := s.maybeStop(pipeline.StageOptimize); err != nil {
		return nil, err
	}
	return layers, nil
}

func (s *stubTools) RenderSVG(model *segment.Model) ([]byte, error) {
	if err := s.maybeStop(pipeline.StageExport); err != nil {
		return nil, err
	}
	return []byte("<svg/>"), nil
}

func toolset(s *stubTools) pipeline.Toolset {
	return pipeline.Toolset{
		Preprocessor: s,
		Quantizer:    s,
		Segmenter:    s,
		Tracer:       s,
		Optimizer:    s,
		Renderer:     s,
	}
}

func defaultOptions() job.Options {
	return job.Options{Mode: job.ModeAuto, Detail: 3, Smoothing: 50, Despeckle: 4}
}

func TestRunReportsMonotonicProgressEndingAtHundred(t *testing.T) {
	runner := pipeline.NewRunner(toolset(&stubTools{}), logging.NewNop())

	var stages []string
	var percents []int
	result, err := runner.Run(context.Background(), []byte("src"), defaultOptions(), func(stage string, percent int) {
		stages = append(stages, stage)
		percents = append(percents, percent)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Model == nil || len(result.SVG) == 0 {
		t.Fatal("run returned an incomplete result")
	}

	wantStages := []string{
		pipeline.StagePreprocess, pipeline.StageQuantize, pipeline.StageSegment,
		pipeline.StageTrace, pipeline.StageOptimize, pipeline.StageExport,
	}
	if len(stages) != len(wantStages) {
		t.Fatalf("got %d reports, want %d", len(stages), len(wantStages))
	}
	for i, want := range wantStages {
		if stages[i] != want {
			t.Fatalf("report %d = %s, want %s", i, stages[i], want)
		}
	}
	last := 0
	for i, p := range percents {
		if p <= last {
			t.Fatalf("progress not strictly increasing at report %d: %v", i, percents)
		}
		last = p
	}
	if last != 100 {
		t.Fatalf("final progress = %d, want 100", last)
	}
}

func TestRunStageFailureNamesStage(t *testing.T) {
	runner := pipeline.NewRunner(toolset(&stubTools{failStage: pipeline.StageTrace}), logging.NewNop())

	reports := 0
	_, err := runner.Run(context.Background(), []byte("src"), defaultOptions(), func(string, int) { reports++ })
	if err == nil {
		t.Fatal("expected stage failure")
	}
	var stageErr *job.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != pipeline.StageTrace {
		t.Fatalf("failed stage = %s, want %s", stageErr.Stage, pipeline.StageTrace)
	}
	// Preprocess, quantize, and segment completed before the failure.
	if reports != 3 {
		t.Fatalf("got %d progress reports before failure, want 3", reports)
	}
}

func TestCancelDuringFinalStageStillCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tools := &stubTools{cancelAt: pipeline.StageExport, cancel: cancel}
	runner := pipeline.NewRunner(toolset(tools), logging.NewNop())

	result, err := runner.Run(ctx, []byte("src"), defaultOptions(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Export was already underway when the cancel arrived; with no stage
	// boundary left the run finishes with a complete result.
	if result.Model == nil || len(result.SVG) == 0 {
		t.Fatal("run returned an incomplete result")
	}
}

func TestRunObservesCancellationAtStageBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tools := &stubTools{cancelAt: pipeline.StageSegment, cancel: cancel}
	runner := pipeline.NewRunner(toolset(tools), logging.NewNop())

	var lastStage string
	_, err := runner.Run(ctx, []byte("src"), defaultOptions(), func(stage string, percent int) {
		lastStage = stage
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Segment itself completes; trace never starts.
	if lastStage != pipeline.StageSegment {
		t.Fatalf("last completed stage = %s, want %s", lastStage, pipeline.StageSegment)
	}
}
