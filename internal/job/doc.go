// Package job tracks vectorization requests through their lifecycle.
//
// The Manager is the single writer of job state: it validates submissions,
// queues them, and runs each through the pipeline on a bounded worker pool.
// Jobs move queued -> running -> one of done, error, or cancelled; terminal
// states never transition again. Observers read immutable Snapshot copies,
// and the Editor mutates the segment model of finished jobs under a
// reference count that disposal waits on.
package job
