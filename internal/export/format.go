package export

import (
	"fmt"
	"strings"

	"vectra/internal/services"
)

// Format identifies an export encoding.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat normalizes a client-supplied format name. "jpeg" is accepted as
// an alias for "jpg".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	default:
		return "", services.Wrap(services.ErrUnsupportedFormat, "export", "parse",
			fmt.Sprintf("unknown format %q", value), nil)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the filename extension without the dot.
func (f Format) Extension() string { return string(f) }

const (
	defaultResolution = 1
	defaultQuality    = 90
)

// Options are the per-export knobs. Resolution is the PNG scale multiplier;
// Quality applies to JPEG only. Zero values mean the format default.
type Options struct {
	Resolution int `json:"resolution"`
	Quality    int `json:"quality"`
}

// Normalize fills zero values with the defaults for the format and clears
// knobs the format ignores, so equivalent requests share one cache slot.
func (o Options) Normalize(f Format) Options {
	out := Options{}
	if f == FormatPNG {
		out.Resolution = o.Resolution
		if out.Resolution == 0 {
			out.Resolution = defaultResolution
		}
	}
	if f == FormatJPEG {
		out.Quality = o.Quality
		if out.Quality == 0 {
			out.Quality = defaultQuality
		}
	}
	return out
}

// Validate rejects out-of-range options for the format. Call after Normalize.
func (o Options) Validate(f Format) error {
	if f == FormatPNG && (o.Resolution < 1 || o.Resolution > 4) {
		return services.Wrap(services.ErrValidation, "export", "options",
			"resolution must be between 1 and 4", nil)
	}
	if f == FormatJPEG && (o.Quality < 60 || o.Quality > 100) {
		return services.Wrap(services.ErrValidation, "export", "options",
			"quality must be between 60 and 100", nil)
	}
	return nil
}

// CacheKey renders the normalized options as a canonical string for the
// artifact cache.
func (o Options) CacheKey(f Format) string {
	switch f {
	case FormatPNG:
		return fmt.Sprintf("r=%d", o.Resolution)
	case FormatJPEG:
		return fmt.Sprintf("q=%d", o.Quality)
	default:
		return ""
	}
}
