package segment

// Mask is a per-pixel coverage bitmap for one layer, row-major, one byte per
// pixel (0 or 1). Masks are treated as immutable once attached to a layer;
// operations that change coverage allocate a new mask.
type Mask struct {
	W, H int
	Bits []uint8
}

// NewMask returns an empty mask of the given dimensions.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]uint8, w*h)}
}

// At reports whether the pixel at (x, y) is covered. Out-of-bounds
// coordinates are not covered.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Bits[y*m.W+x] != 0
}

// Set marks the pixel at (x, y) covered or clear.
func (m *Mask) Set(x, y int, covered bool) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	if covered {
		m.Bits[y*m.W+x] = 1
	} else {
		m.Bits[y*m.W+x] = 0
	}
}

// Count returns the number of covered pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.Bits {
		if b != 0 {
			n++
		}
	}
	return n
}

// UnionMasks returns a new mask covering every pixel covered by either input.
// Inputs of mismatched dimensions union over the larger bounding box.
func UnionMasks(a, b *Mask) *Mask {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	w, h := a.W, a.H
	if b.W > w {
		w = b.W
	}
	if b.H > h {
		h = b.H
	}
	out := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if a.At(x, y) || b.At(x, y) {
				out.Set(x, y, true)
			}
		}
	}
	return out
}
