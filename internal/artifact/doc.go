// Package artifact caches rendered exports keyed by job, format, and
// canonical options. Payloads carry the segment model's edit version as a
// stamp: a lookup whose stamp does not match the model's current version is
// a miss, which makes every edit an implicit cache invalidation. Misses for
// the same key render at most once concurrently.
package artifact
