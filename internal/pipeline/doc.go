// Package pipeline sequences the conversion stages for one job.
//
// The Runner executes Preprocess, Quantize, Segment, Trace, Optimize, and
// Export in fixed order against a Toolset of collaborator interfaces. Each
// stage owns a fixed share of the progress span; progress is reported and
// cancellation observed only at stage boundaries, which bounds cancel latency
// to one stage's duration. A failing stage aborts the remainder and surfaces
// as a stage failure carrying the stage name; partial output is discarded.
package pipeline
