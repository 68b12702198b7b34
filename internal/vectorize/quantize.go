package vectorize

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sort"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/services"
)

const (
	autoColorMin = 2
	autoColorMax = 32
	// alphaCutoff separates foreground from transparent background pixels.
	alphaCutoff = 128
)

// Quantizer reduces the raster to a bounded palette with median cut. The
// whole procedure is deterministic: box splits order pixels by a total
// ordering and the finished palette is sorted by population, so identical
// inputs always yield the identical palette and labeling.
type Quantizer struct {
	logger *slog.Logger
}

func NewQuantizer(logger *slog.Logger) *Quantizer {
	return &Quantizer{logger: logging.NewComponentLogger(logger, "quantize")}
}

func (q *Quantizer) Quantize(ctx context.Context, raster *pipeline.Raster, opts job.Options) (*pipeline.Quantized, error) {
	img := raster.Image
	w, h := img.Rect.Dx(), img.Rect.Dy()

	opaque := make([]color.NRGBA, 0, w*h)
	labels := make([]int16, w*h)
	for i := range labels {
		off := i * 4
		px := color.NRGBA{R: img.Pix[off], G: img.Pix[off+1], B: img.Pix[off+2], A: img.Pix[off+3]}
		if px.A < alphaCutoff {
			labels[i] = -1
			continue
		}
		px.A = 255
		opaque = append(opaque, px)
	}
	if len(opaque) == 0 {
		return nil, services.Wrap(services.ErrValidation, "quantize", "palette", "image is fully transparent", nil)
	}

	k := opts.Colors
	if k == job.AutoColors {
		k = autoColorCount(opaque, raster.Mode)
	}

	palette := medianCut(opaque, k)
	assignLabels(img, labels, palette)
	quantized := &pipeline.Quantized{Width: w, Height: h, Palette: palette, Labels: labels}

	if opts.RemoveBackground {
		stripBackground(quantized)
	}

	q.logger.Debug("palette built",
		logging.Int("requested", opts.Colors),
		logging.Int("colors", len(palette)),
		logging.String("mode", raster.Mode),
	)
	return quantized, nil
}

// autoColorCount derives the palette size from the occupied coarse histogram
// bins: one color per eight occupied 4-bit-per-channel bins, clamped to
// [2, 32]. Line art always resolves to two colors.
func autoColorCount(pixels []color.NRGBA, mode string) int {
	if mode == job.ModeLineArt {
		return 2
	}
	var bins [4096]bool
	occupied := 0
	for _, px := range pixels {
		bin := int(px.R>>4)<<8 | int(px.G>>4)<<4 | int(px.B>>4)
		if !bins[bin] {
			bins[bin] = true
			occupied++
		}
	}
	k := occupied / 8
	if k < autoColorMin {
		k = autoColorMin
	}
	if k > autoColorMax {
		k = autoColorMax
	}
	return k
}

type colorBox struct {
	pixels []color.NRGBA
}

func (b *colorBox) widestChannel() (channel int, spread int) {
	var minC, maxC [3]int
	for i := range minC {
		minC[i] = 256
		maxC[i] = -1
	}
	for _, px := range b.pixels {
		for i, v := range [3]int{int(px.R), int(px.G), int(px.B)} {
			if v < minC[i] {
				minC[i] = v
			}
			if v > maxC[i] {
				maxC[i] = v
			}
		}
	}
	for i := 0; i < 3; i++ {
		if d := maxC[i] - minC[i]; d > spread {
			spread = d
			channel = i
		}
	}
	return channel, spread
}

// medianCut splits the box with the widest channel spread at its median until
// k boxes exist, then averages each box into a palette entry.
func medianCut(pixels []color.NRGBA, k int) []color.NRGBA {
	own := make([]color.NRGBA, len(pixels))
	copy(own, pixels)
	boxes := []*colorBox{{pixels: own}}

	for len(boxes) < k {
		splitIdx, splitSpread := -1, 0
		for i, box := range boxes {
			if len(box.pixels) < 2 {
				continue
			}
			if _, spread := box.widestChannel(); spread > splitSpread {
				splitSpread = spread
				splitIdx = i
			}
		}
		if splitIdx < 0 {
			break
		}

		box := boxes[splitIdx]
		channel, _ := box.widestChannel()
		sort.Slice(box.pixels, func(i, j int) bool {
			return lessPixel(box.pixels[i], box.pixels[j], channel)
		})
		mid := len(box.pixels) / 2
		boxes[splitIdx] = &colorBox{pixels: box.pixels[:mid]}
		boxes = append(boxes, &colorBox{pixels: box.pixels[mid:]})
	}

	palette := make([]color.NRGBA, 0, len(boxes))
	for _, box := range boxes {
		palette = append(palette, averageColor(box.pixels))
	}
	sortPalette(palette, boxes)
	return dedupePalette(palette)
}

// lessPixel is a total order on colors keyed by the split channel, so ties
// cannot reorder between runs.
func lessPixel(a, b color.NRGBA, channel int) bool {
	av := [3]uint8{a.R, a.G, a.B}
	bv := [3]uint8{b.R, b.G, b.B}
	if av[channel] != bv[channel] {
		return av[channel] < bv[channel]
	}
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}

func averageColor(pixels []color.NRGBA) color.NRGBA {
	if len(pixels) == 0 {
		return color.NRGBA{A: 255}
	}
	var r, g, b uint64
	for _, px := range pixels {
		r += uint64(px.R)
		g += uint64(px.G)
		b += uint64(px.B)
	}
	n := uint64(len(pixels))
	return color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// sortPalette orders entries by box population descending, then by channel
// values, so label indices are stable across runs.
func sortPalette(palette []color.NRGBA, boxes []*colorBox) {
	type ranked struct {
		c   color.NRGBA
		pop int
	}
	entries := make([]ranked, len(palette))
	for i := range palette {
		entries[i] = ranked{c: palette[i], pop: len(boxes[i].pixels)}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pop != entries[j].pop {
			return entries[i].pop > entries[j].pop
		}
		return lessPixel(entries[i].c, entries[j].c, 0)
	})
	for i := range entries {
		palette[i] = entries[i].c
	}
}

func dedupePalette(palette []color.NRGBA) []color.NRGBA {
	out := palette[:0]
	seen := make(map[color.NRGBA]struct{}, len(palette))
	for _, c := range palette {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// assignLabels maps every opaque pixel to its nearest palette entry by
// squared RGB distance. The first entry wins ties, matching the palette's
// stable order. Repeated colors hit a small memo instead of rescanning.
func assignLabels(img *image.NRGBA, labels []int16, palette []color.NRGBA) {
	memo := make(map[uint32]int16)
	for i := range labels {
		if labels[i] == -1 {
			continue
		}
		off := i * 4
		key := uint32(img.Pix[off])<<16 | uint32(img.Pix[off+1])<<8 | uint32(img.Pix[off+2])
		if label, ok := memo[key]; ok {
			labels[i] = label
			continue
		}
		best, bestDist := int16(0), 1<<31-1
		for p, entry := range palette {
			dr := int(img.Pix[off]) - int(entry.R)
			dg := int(img.Pix[off+1]) - int(entry.G)
			db := int(img.Pix[off+2]) - int(entry.B)
			if dist := dr*dr + dg*dg + db*db; dist < bestDist {
				bestDist = dist
				best = int16(p)
			}
		}
		memo[key] = best
		labels[i] = best
	}
}

// stripBackground clears the label that dominates the image border, leaving
// those pixels outside every layer.
func stripBackground(q *pipeline.Quantized) {
	counts := make([]int, len(q.Palette))
	visit := func(x, y int) {
		if label := q.Labels[y*q.Width+x]; label >= 0 {
			counts[label]++
		}
	}
	for x := 0; x < q.Width; x++ {
		visit(x, 0)
		visit(x, q.Height-1)
	}
	for y := 0; y < q.Height; y++ {
		visit(0, y)
		visit(q.Width-1, y)
	}

	dominant, most := -1, 0
	for label, count := range counts {
		if count > most {
			most = count
			dominant = label
		}
	}
	perimeter := 2 * (q.Width + q.Height)
	if dominant < 0 || most*2 < perimeter {
		return
	}
	for i, label := range q.Labels {
		if int(label) == dominant {
			q.Labels[i] = -1
		}
	}
}
