package vectorize_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/vectorize"
)

func rasterFrom(colors [][]color.NRGBA) *pipeline.Raster {
	h := len(colors)
	w := len(colors[0])
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, colors[y][x])
		}
	}
	return &pipeline.Raster{Image: img, Mode: job.ModeLogo}
}

func twoToneRaster(w, h int, left, right color.NRGBA) *pipeline.Raster {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fill := left
			if x >= w/2 {
				fill = right
			}
			img.SetNRGBA(x, y, fill)
		}
	}
	return &pipeline.Raster{Image: img, Mode: job.ModeLogo}
}

func TestQuantizeIsDeterministic(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	raster := twoToneRaster(32, 32, color.NRGBA{R: 200, G: 30, B: 30, A: 255}, color.NRGBA{R: 20, G: 40, B: 220, A: 255})
	opts := job.Options{Mode: job.ModeLogo, Colors: job.AutoColors, Detail: 3, Smoothing: 50}

	first, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	second, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}

	if len(first.Palette) != len(second.Palette) {
		t.Fatalf("palette sizes differ: %d vs %d", len(first.Palette), len(second.Palette))
	}
	for i := range first.Palette {
		if first.Palette[i] != second.Palette[i] {
			t.Fatalf("palette entry %d differs: %v vs %v", i, first.Palette[i], second.Palette[i])
		}
	}
	for i := range first.Labels {
		if first.Labels[i] != second.Labels[i] {
			t.Fatalf("label %d differs", i)
		}
	}
}

func TestQuantizeHonorsExplicitColorCount(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	raster := twoToneRaster(32, 32, color.NRGBA{R: 250, A: 255}, color.NRGBA{B: 250, A: 255})
	opts := job.Options{Mode: job.ModeLogo, Colors: 2, Detail: 3}

	got, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if len(got.Palette) != 2 {
		t.Fatalf("palette size = %d, want 2", len(got.Palette))
	}
	for i, label := range got.Labels {
		if label < 0 || int(label) >= len(got.Palette) {
			t.Fatalf("label %d out of range: %d", i, label)
		}
	}
}

func TestQuantizeLineArtAutoResolvesToTwoColors(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	raster := twoToneRaster(32, 32, color.NRGBA{A: 255}, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	raster.Mode = job.ModeLineArt
	opts := job.Options{Mode: job.ModeLineArt, Colors: job.AutoColors, Detail: 3}

	got, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if len(got.Palette) != 2 {
		t.Fatalf("line art palette size = %d, want 2", len(got.Palette))
	}
}

func TestQuantizeMarksTransparentPixelsOutsideLayers(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	clear := color.NRGBA{}
	red := color.NRGBA{R: 255, A: 255}
	raster := rasterFrom([][]color.NRGBA{
		{clear, red},
		{red, clear},
	})
	opts := job.Options{Mode: job.ModeLogo, Colors: 2, Detail: 3}

	got, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if got.Labels[0] != -1 || got.Labels[3] != -1 {
		t.Fatalf("transparent pixels not excluded: %v", got.Labels)
	}
	if got.Labels[1] < 0 || got.Labels[2] < 0 {
		t.Fatalf("opaque pixels unlabeled: %v", got.Labels)
	}
}

func TestQuantizeRejectsFullyTransparentImage(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	raster := rasterFrom([][]color.NRGBA{{{}, {}}, {{}, {}}})
	if _, err := q.Quantize(context.Background(), raster, job.Options{Mode: job.ModeLogo, Detail: 3}); err == nil {
		t.Fatal("expected error for fully transparent image")
	}
}

func TestRemoveBackgroundStripsDominantBorderColor(t *testing.T) {
	q := vectorize.NewQuantizer(logging.NewNop())
	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	fg := color.NRGBA{R: 10, G: 10, B: 10, A: 255}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			fill := bg
			if x >= 2 && x < 6 && y >= 2 && y < 6 {
				fill = fg
			}
			img.SetNRGBA(x, y, fill)
		}
	}
	raster := &pipeline.Raster{Image: img, Mode: job.ModeLogo}
	opts := job.Options{Mode: job.ModeLogo, Colors: 2, Detail: 3, RemoveBackground: true}

	got, err := q.Quantize(context.Background(), raster, opts)
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}
	if got.Labels[0] != -1 {
		t.Fatal("border background pixel survived removal")
	}
	if got.Labels[3*8+3] < 0 {
		t.Fatal("foreground pixel was stripped with the background")
	}
}
