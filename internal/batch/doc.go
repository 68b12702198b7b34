// Package batch groups submissions so many files convert under one handle.
// Individual jobs stay first-class: the batch only aggregates their status
// and packages their finished exports. Downloads are partial by design, with
// an in-archive manifest naming what was omitted and why.
package batch
