package job

import (
	"fmt"

	"vectra/internal/services"
)

// Modes accepted by Options.Mode. ModeAuto resolves to one of the concrete
// modes from image statistics during preprocessing.
const (
	ModeAuto     = "auto"
	ModePhoto    = "photo"
	ModeLogo     = "logo"
	ModeLineArt  = "line-art"
	ModePixelArt = "pixel-art"
)

// AutoColors selects the palette size from image statistics.
const AutoColors = 0

// Options is the immutable conversion configuration captured at submission.
// Edits operate on the produced segment model, never on these values.
type Options struct {
	Mode             string `json:"mode"`
	Colors           int    `json:"colors"`
	Detail           int    `json:"detail"`
	Smoothing        int    `json:"smoothing"`
	Despeckle        int    `json:"despeckle"`
	CornerThreshold  int    `json:"corner_threshold"`
	RemoveBackground bool   `json:"remove_background"`
}

// Validate rejects out-of-range values before a job is created.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeAuto, ModePhoto, ModeLogo, ModeLineArt, ModePixelArt:
	default:
		return services.Wrap(services.ErrValidation, "job", "options", fmt.Sprintf("unsupported mode %q", o.Mode), nil)
	}
	if o.Colors != AutoColors && (o.Colors < 2 || o.Colors > 64) {
		return services.Wrap(services.ErrValidation, "job", "options", "colors must be 0 (auto) or between 2 and 64", nil)
	}
	if o.Detail < 1 || o.Detail > 5 {
		return services.Wrap(services.ErrValidation, "job", "options", "detail must be between 1 and 5", nil)
	}
	if o.Smoothing < 0 || o.Smoothing > 100 {
		return services.Wrap(services.ErrValidation, "job", "options", "smoothing must be between 0 and 100", nil)
	}
	if o.Despeckle < 0 {
		return services.Wrap(services.ErrValidation, "job", "options", "despeckle must not be negative", nil)
	}
	if o.CornerThreshold < 0 || o.CornerThreshold > 180 {
		return services.Wrap(services.ErrValidation, "job", "options", "corner threshold must be between 0 and 180 degrees", nil)
	}
	return nil
}
