package events

import "time"

// EntityBatchStart is emitted before resolving an _entities batch.
type EntityBatchStart struct {
	Size int
}

// EntityBatchFinish is emitted after an _entities batch completes.
// Size = Resolved + NotFound + Failed.
type EntityBatchFinish struct {
	Size     int
	Resolved int
	NotFound int
	Failed   int
	Duration time.Duration
}
