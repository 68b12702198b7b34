package export

import (
	"vectra/internal/segment"
	"vectra/internal/services"
)

// Renderer produces export payloads from segment models. It is stateless;
// every render is a pure function of the layer snapshot it receives.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// RenderSnapshot encodes an already-taken layer snapshot. Callers that need
// the payload tied to a specific edit version snapshot first and pass the
// layers through here.
func (r *Renderer) RenderSnapshot(width, height int, layers []segment.Layer, f Format, o Options) ([]byte, error) {
	o = o.Normalize(f)
	switch f {
	case FormatSVG:
		return renderSVG(width, height, layers), nil
	case FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF:
		return renderRaster(width, height, layers, f, o)
	default:
		return nil, services.Wrap(services.ErrUnsupportedFormat, "export", "render", string(f), nil)
	}
}

// RenderSVG produces the default export attached to finished jobs.
func (r *Renderer) RenderSVG(model *segment.Model) ([]byte, error) {
	layers, _ := model.Snapshot()
	return renderSVG(model.Width, model.Height, layers), nil
}
