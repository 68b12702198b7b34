package segment_test

import (
	"errors"
	"strings"
	"testing"

	"vectra/internal/segment"
	"vectra/internal/services"
)

func buildModel(t *testing.T, colors ...string) *segment.Model {
	t.Helper()
	layers := make([]segment.Layer, len(colors))
	for i, c := range colors {
		mask := segment.NewMask(4, 4)
		mask.Set(i%4, i/4, true)
		layers[i] = segment.Layer{
			Color:      c,
			PathData:   "M 0 0 L 1 0 L 1 1 L 0 1 Z",
			Mask:       mask,
			PixelShare: 0.1,
		}
	}
	return segment.NewModel(4, 4, layers)
}

func TestMergeKeepsLowerIndexColor(t *testing.T) {
	model := buildModel(t, "#000000", "#111111", "#222222", "#333333", "#444444", "#555555")

	if err := model.Merge(5, 2); err != nil {
		t.Fatalf("merge: %v", err)
	}

	if got := model.LayerCount(); got != 5 {
		t.Fatalf("expected 5 layers after merge, got %d", got)
	}
	palette := model.Palette()
	if palette[2] != "#222222" {
		t.Fatalf("merged layer should keep lower index color, got %s", palette[2])
	}
	// Indices above the removed layer shift down densely.
	want := []string{"#000000", "#111111", "#222222", "#333333", "#444444"}
	for i, c := range want {
		if palette[i] != c {
			t.Fatalf("palette[%d] = %s, want %s", i, palette[i], c)
		}
	}
	if got := model.Version(); got != 1 {
		t.Fatalf("version = %d, want 1", got)
	}
}

func TestMergeCombinesPathsAndMasks(t *testing.T) {
	model := buildModel(t, "#aa0000", "#00bb00")
	if err := model.Merge(0, 1); err != nil {
		t.Fatalf("merge: %v", err)
	}
	layers, _ := model.Snapshot()
	if count := strings.Count(layers[0].PathData, "M "); count != 2 {
		t.Fatalf("merged path data should contain both subpaths, got %q", layers[0].PathData)
	}
	if got := layers[0].Mask.Count(); got != 2 {
		t.Fatalf("merged mask count = %d, want 2", got)
	}
}

func TestMergeRejectsSameIndex(t *testing.T) {
	model := buildModel(t, "#aa0000", "#00bb00")
	err := model.Merge(1, 1)
	if !errors.Is(err, services.ErrSameIndex) {
		t.Fatalf("expected ErrSameIndex, got %v", err)
	}
	if got := model.Version(); got != 0 {
		t.Fatalf("failed edit must not bump version, got %d", got)
	}
}

func TestMergeRejectsOutOfRange(t *testing.T) {
	model := buildModel(t, "#aa0000", "#00bb00")
	if err := model.Merge(0, 7); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSplitReplacesLayerInPaintOrder(t *testing.T) {
	model := buildModel(t, "#000000", "#111111", "#222222")

	err := model.Split(1, func(layer segment.Layer) ([]segment.Layer, error) {
		if layer.Color != "#111111" {
			t.Fatalf("split callback received layer %s, want #111111", layer.Color)
		}
		a, b := layer, layer
		a.PixelShare = layer.PixelShare / 2
		b.PixelShare = layer.PixelShare / 2
		return []segment.Layer{a, b}, nil
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	want := []string{"#000000", "#111111", "#111111", "#222222"}
	palette := model.Palette()
	if len(palette) != len(want) {
		t.Fatalf("layer count = %d, want %d", len(palette), len(want))
	}
	for i, c := range want {
		if palette[i] != c {
			t.Fatalf("palette[%d] = %s, want %s", i, palette[i], c)
		}
	}
	if got := model.Version(); got != 1 {
		t.Fatalf("version = %d, want 1", got)
	}
}

func TestSplitFailureLeavesModelUntouched(t *testing.T) {
	model := buildModel(t, "#aa0000")
	boom := errors.New("no parts")
	if err := model.Split(0, func(segment.Layer) ([]segment.Layer, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if err := model.Split(0, func(segment.Layer) ([]segment.Layer, error) {
		return nil, nil
	}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty parts, got %v", err)
	}
	if err := model.Split(3, nil); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if got := model.Version(); got != 0 {
		t.Fatalf("failed splits must not bump version, got %d", got)
	}
	if got := model.LayerCount(); got != 1 {
		t.Fatalf("layer count = %d, want 1", got)
	}
}

func TestDeleteLastLayerLeavesValidEmptyModel(t *testing.T) {
	model := buildModel(t, "#abcdef")
	if err := model.Delete(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := model.LayerCount(); got != 0 {
		t.Fatalf("layer count = %d, want 0", got)
	}
	if got := len(model.Palette()); got != 0 {
		t.Fatalf("palette should be empty, got %d entries", got)
	}
	if got := model.Version(); got != 1 {
		t.Fatalf("version = %d, want 1", got)
	}
	// A further delete on the empty model is out of range, not a panic.
	if err := model.Delete(0); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange on empty model, got %v", err)
	}
}

func TestRecolorNormalizesColor(t *testing.T) {
	model := buildModel(t, "#aa0000")
	if err := model.Recolor(0, "  #ABCDEF "); err != nil {
		t.Fatalf("recolor: %v", err)
	}
	if got := model.Palette()[0]; got != "#abcdef" {
		t.Fatalf("recolor normalized to %s, want #abcdef", got)
	}
}

func TestRecolorRejectsBadColor(t *testing.T) {
	model := buildModel(t, "#aa0000")
	if err := model.Recolor(0, "red"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestVersionCountsEveryEdit(t *testing.T) {
	model := buildModel(t, "#111111", "#222222", "#333333")
	if err := model.Recolor(0, "#999999"); err != nil {
		t.Fatal(err)
	}
	if err := model.Merge(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := model.Delete(1); err != nil {
		t.Fatal(err)
	}
	if got := model.Version(); got != 3 {
		t.Fatalf("version = %d, want 3", got)
	}
}

func TestSnapshotIsStableAcrossEdits(t *testing.T) {
	model := buildModel(t, "#111111", "#222222")
	layers, version := model.Snapshot()
	if err := model.Delete(1); err != nil {
		t.Fatal(err)
	}
	if len(layers) != 2 || version != 0 {
		t.Fatalf("snapshot changed after edit: %d layers, version %d", len(layers), version)
	}
}
