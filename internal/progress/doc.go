// Package progress is the single source of truth for job status delivery.
//
// The Hub retains the latest snapshot per job and serves both delivery paths
// from it: push subscribers get every update (newest-wins when their buffer
// fills) and pull queries read the same retained state, so the two paths can
// never disagree about a job.
package progress
