package segment

import (
	"strconv"
	"strings"
	"sync"

	"vectra/internal/services"
)

// Layer is one color-homogeneous group of vector paths. Order within a Model
// is paint order: later layers draw on top of earlier ones.
type Layer struct {
	// Color is the canonical fill color, always "#rrggbb" lowercase.
	Color string
	// PathData holds the layer's SVG path commands. A layer may contain
	// multiple subpaths; holes are encoded with the evenodd fill rule.
	PathData string
	// Mask is the layer's pixel coverage, retained so raster exports and
	// future re-traces do not depend on parsing PathData back.
	Mask *Mask
	// PixelShare is the fraction of image area this layer covered at
	// segmentation time. Informational; edits do not re-normalize it.
	PixelShare float64
}

// Model is the editable result of segmentation and tracing. It is exclusively
// owned by its job; all mutation goes through the methods below, which
// serialize so concurrent edits never interleave.
type Model struct {
	Width  int
	Height int

	mu      sync.Mutex
	layers  []Layer
	version uint64
}

// NewModel builds a model from traced layers. The layer slice is owned by the
// model afterwards.
func NewModel(width, height int, layers []Layer) *Model {
	return &Model{Width: width, Height: height, layers: layers}
}

// Version returns the edit counter. It starts at zero and increments on every
// successful edit; export artifacts are stamped with it to detect staleness.
func (m *Model) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// LayerCount returns the number of layers.
func (m *Model) LayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

// Palette returns the layer colors in paint order.
func (m *Model) Palette() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	colors := make([]string, len(m.layers))
	for i, layer := range m.layers {
		colors[i] = layer.Color
	}
	return colors
}

// Snapshot returns a copy of the layer slice together with the edit counter
// at the time of the call. Masks are shared; edits replace masks rather than
// mutating them, so a snapshot stays internally consistent.
func (m *Model) Snapshot() ([]Layer, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	layers := make([]Layer, len(m.layers))
	copy(layers, m.layers)
	return layers, m.version
}

// Recolor replaces the color of the layer at index.
func (m *Model) Recolor(index int, newColor string) error {
	normalized, err := NormalizeColor(newColor)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.layers) {
		return services.Wrap(services.ErrIndexOutOfRange, "segment", "recolor", indexDetail(index, len(m.layers)), nil)
	}
	m.layers[index].Color = normalized
	m.version++
	return nil
}

// Merge unions the two layers' path data and masks under the color of the
// lower index, removes the higher index, and re-densifies indices above it.
func (m *Model) Merge(i, j int) error {
	if i == j {
		return services.Wrap(services.ErrSameIndex, "segment", "merge", "layer indices must differ", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.layers) {
		return services.Wrap(services.ErrIndexOutOfRange, "segment", "merge", indexDetail(i, len(m.layers)), nil)
	}
	if j < 0 || j >= len(m.layers) {
		return services.Wrap(services.ErrIndexOutOfRange, "segment", "merge", indexDetail(j, len(m.layers)), nil)
	}

	lower, higher := i, j
	if lower > higher {
		lower, higher = higher, lower
	}
	keep := &m.layers[lower]
	drop := m.layers[higher]

	keep.PathData = joinPathData(keep.PathData, drop.PathData)
	keep.Mask = UnionMasks(keep.Mask, drop.Mask)
	keep.PixelShare += drop.PixelShare

	m.layers = append(m.layers[:higher], m.layers[higher+1:]...)
	m.version++
	return nil
}

// Split replaces the layer at index with the parts produced by the split
// function, which runs under the model lock so no other edit can slip in
// between reading the layer and installing its replacements. Parts take the
// replaced layer's position in paint order; indices above shift up densely.
func (m *Model) Split(index int, split func(layer Layer) ([]Layer, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.layers) {
		return services.Wrap(services.ErrIndexOutOfRange, "segment", "split", indexDetail(index, len(m.layers)), nil)
	}
	parts, err := split(m.layers[index])
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return services.Wrap(services.ErrValidation, "segment", "split", "split produced no layers", nil)
	}
	out := make([]Layer, 0, len(m.layers)+len(parts)-1)
	out = append(out, m.layers[:index]...)
	out = append(out, parts...)
	out = append(out, m.layers[index+1:]...)
	m.layers = out
	m.version++
	return nil
}

// Delete removes the layer at index and re-densifies indices above it.
// Deleting the last remaining layer leaves an empty but valid model.
func (m *Model) Delete(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.layers) {
		return services.Wrap(services.ErrIndexOutOfRange, "segment", "delete", indexDetail(index, len(m.layers)), nil)
	}
	m.layers = append(m.layers[:index], m.layers[index+1:]...)
	m.version++
	return nil
}

func joinPathData(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func indexDetail(index, count int) string {
	return "layer " + strconv.Itoa(index) + " of " + strconv.Itoa(count)
}
