// Package export encodes segment models into the supported output formats:
// svg, png, jpg, gif, bmp, and tiff. SVG assembly uses the traced path data;
// raster formats paint the retained layer masks. Option validation and
// canonical cache keys live here so the API surface and the artifact cache
// agree on what distinguishes one export from another.
package export
