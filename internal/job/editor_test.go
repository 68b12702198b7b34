package job_test

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
	"vectra/internal/testsupport"
)

func doneJob(t *testing.T, manager *job.Manager) string {
	t.Helper()
	source := testsupport.SolidPNG(t, 4, 4, color.NRGBA{R: 9, A: 255})
	jobID, err := manager.Submit(source, "a.png", defaultOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	testsupport.WaitForState(t, manager, jobID, job.StateDone, 2*time.Second)
	return jobID
}

func twoLayers() []segment.Layer {
	return []segment.Layer{
		testsupport.NewLayer("#111111", 4, 4),
		testsupport.NewLayer("#222222", 4, 4),
	}
}

func TestEditorRecolorPublishesNewPalette(t *testing.T) {
	sink := &recordingSink{}
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.StubRunner{Layers: twoLayers()}
	manager := job.NewManager(cfg, runner, sink, nil, logging.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Stop)
	editor := job.NewEditor(manager, &testsupport.StubSplitter{}, logging.NewNop())

	jobID := doneJob(t, manager)
	if err := editor.Recolor(jobID, 1, "#ff00ff"); err != nil {
		t.Fatalf("recolor: %v", err)
	}

	snap, err := manager.Get(jobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Colors[1] != "#ff00ff" {
		t.Fatalf("palette after recolor = %v", snap.Colors)
	}
	history := sink.history(jobID)
	if last := history[len(history)-1]; last.Colors[1] != "#ff00ff" {
		t.Fatal("edit was not republished to subscribers")
	}
}

func TestEditorRejectsEditsBeforeDone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager := job.NewManager(cfg, &testsupport.StubRunner{BlockOnCancel: true}, nil, nil, logging.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Stop)
	editor := job.NewEditor(manager, &testsupport.StubSplitter{}, logging.NewNop())

	source := testsupport.SolidPNG(t, 4, 4, color.NRGBA{A: 255})
	jobID, err := manager.Submit(source, "a.png", defaultOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	testsupport.WaitForState(t, manager, jobID, job.StateRunning, 2*time.Second)

	if err := editor.Recolor(jobID, 0, "#123456"); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := editor.Delete(jobID, 0); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestEditorMergeAndDeleteKeepIndicesDense(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.StubRunner{Layers: []segment.Layer{
		testsupport.NewLayer("#000000", 4, 4),
		testsupport.NewLayer("#111111", 4, 4),
		testsupport.NewLayer("#222222", 4, 4),
	}}
	manager := job.NewManager(cfg, runner, nil, nil, logging.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Stop)
	editor := job.NewEditor(manager, &testsupport.StubSplitter{}, logging.NewNop())

	jobID := doneJob(t, manager)
	if err := editor.Merge(jobID, 0, 2); err != nil {
		t.Fatalf("merge: %v", err)
	}
	snap, _ := manager.Get(jobID)
	if snap.Layers != 2 {
		t.Fatalf("layers after merge = %d, want 2", snap.Layers)
	}

	if err := editor.Delete(jobID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := editor.Delete(jobID, 0); err != nil {
		t.Fatalf("delete last: %v", err)
	}
	snap, _ = manager.Get(jobID)
	if snap.State != job.StateDone {
		t.Fatalf("emptied model left state %s, want done", snap.State)
	}
	if snap.Layers != 0 {
		t.Fatalf("layers after emptying = %d, want 0", snap.Layers)
	}
}

func TestEditorSplitExpandsPalette(t *testing.T) {
	sink := &recordingSink{}
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.StubRunner{Layers: twoLayers()}
	manager := job.NewManager(cfg, runner, sink, nil, logging.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Stop)
	splitter := &testsupport.StubSplitter{}
	editor := job.NewEditor(manager, splitter, logging.NewNop())

	jobID := doneJob(t, manager)
	if err := editor.Split(jobID, 0, 3); err != nil {
		t.Fatalf("split: %v", err)
	}
	if splitter.Calls() != 1 {
		t.Fatalf("splitter calls = %d, want 1", splitter.Calls())
	}

	snap, err := manager.Get(jobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Layers != 4 {
		t.Fatalf("layers after split = %d, want 4", snap.Layers)
	}
	// Parts keep the source layer's color and slot in at its index.
	want := []string{"#111111", "#111111", "#111111", "#222222"}
	for i, c := range want {
		if snap.Colors[i] != c {
			t.Fatalf("colors[%d] = %s, want %s", i, snap.Colors[i], c)
		}
	}
	history := sink.history(jobID)
	if last := history[len(history)-1]; last.Layers != 4 {
		t.Fatal("split was not republished to subscribers")
	}
}

func TestEditorSplitRejectsBadPartCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &testsupport.StubRunner{Layers: twoLayers()}
	manager := job.NewManager(cfg, runner, nil, nil, logging.NewNop())
	manager.Start(context.Background())
	t.Cleanup(manager.Stop)
	editor := job.NewEditor(manager, &testsupport.StubSplitter{}, logging.NewNop())

	jobID := doneJob(t, manager)
	if err := editor.Split(jobID, 0, 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for 1 part, got %v", err)
	}
	if err := editor.Split(jobID, 9, 2); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	snap, _ := manager.Get(jobID)
	if snap.Layers != 2 {
		t.Fatalf("failed splits changed the model: %d layers", snap.Layers)
	}
}

func TestEditorUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager := job.NewManager(cfg, &testsupport.StubRunner{}, nil, nil, logging.NewNop())
	editor := job.NewEditor(manager, &testsupport.StubSplitter{}, logging.NewNop())
	if err := editor.Merge("missing", 0, 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
