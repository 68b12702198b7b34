// Package segment holds the editable layer model produced by segmentation
// and tracing.
//
// A Model owns an ordered set of layers (paint order matters) and an edit
// counter. Recolor, Merge, and Delete are the only mutation paths; they
// serialize on the model's lock, keep layer indices dense, and bump the edit
// counter so cached export artifacts can detect staleness without eager
// invalidation.
package segment
