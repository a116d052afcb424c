package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Add records n events. Non-positive n is ignored.
func (c *Counter) Add(n int) {
	if !enabled || n <= 0 {
		return
	}
	c.n.Add(int64(n))
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Reset zeroes the counter.
func (c *Counter) Reset() { c.n.Store(0) }

// Reconciliation and identity counters. Phase counters sum node changes over
// every reconcile pass; key counters sum rebinding results over reloads.
var (
	NodesEntered = newCounter("nodes_entered")
	NodesUpdated = newCounter("nodes_updated")
	NodesExited  = newCounter("nodes_exited")
	KeysKept     = newCounter("keys_kept")
	KeysAdded    = newCounter("keys_added")
	KeysRetired  = newCounter("keys_retired")
)

// AllCounters returns every registered counter.
func AllCounters() []*Counter {
	return []*Counter{NodesEntered, NodesUpdated, NodesExited, KeysKept, KeysAdded, KeysRetired}
}

// CounterValues returns the non-zero counters by name.
func CounterValues() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range AllCounters() {
		if v := c.Value(); v > 0 {
			out[c.name] = v
		}
	}
	return out
}
