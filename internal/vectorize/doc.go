// Package vectorize implements the conversion stages the pipeline composes:
// decoding and normalization, deterministic palette quantization, layer
// segmentation with despeckling, contour tracing with simplification and
// smoothing, and final path cleanup. All stages are pure functions of their
// input bytes and options, so identical submissions produce identical output.
package vectorize
