// Package metrics provides lightweight in-process counters for a single
// pipeline run, surfaced on the run report for operator output.
package metrics

import "sync/atomic"

// Counter is a monotonically increasing counter safe for concurrent use.
type Counter struct {
	value atomic.Int64
}

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// RunCounters aggregates the counters of one run.
type RunCounters struct {
	PagesFetched     Counter
	MessagesFetched  Counter
	RateLimitRetries Counter
	ChunksDelivered  Counter
	ChunksFailed     Counter
}

// NewRunCounters creates an empty counter set.
func NewRunCounters() *RunCounters { return &RunCounters{} }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PagesFetched     int64
	MessagesFetched  int64
	RateLimitRetries int64
	ChunksDelivered  int64
	ChunksFailed     int64
}

// Snapshot copies the current counter values.
func (r *RunCounters) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		PagesFetched:     r.PagesFetched.Value(),
		MessagesFetched:  r.MessagesFetched.Value(),
		RateLimitRetries: r.RateLimitRetries.Value(),
		ChunksDelivered:  r.ChunksDelivered.Value(),
		ChunksFailed:     r.ChunksFailed.Value(),
	}
}
