package metrics

import "sync/atomic"

// RunCounters aggregates per-run totals while a sync run is in flight.
type RunCounters struct {
	ProcessedCount atomic.Int32
	ErroredCount   atomic.Int32
}
