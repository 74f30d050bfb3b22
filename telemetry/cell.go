// Package telemetry implements the Worker Telemetry Channel: one
// fixed-layout cell per worker, written by that worker's simulation
// loop and read by the progress display (and, optionally, by the
// broadcast server in telemetry/broadcast).
//
// Each field is published independently with sync/atomic, the way
// github.com/niceyeti/.../atomic_helpers.AtomicFloat64 bit-casts a
// float64 onto an atomic integer — generalized here to the six-field
// tuple a worker needs to report and to Go's typed atomic.Uint64/Int32
// rather than the unsafe.Pointer trick that package uses. A cell
// promises only that each field read returns some previously-written
// value; no cross-field snapshot consistency is promised mid-step.
package telemetry

import (
	"math"
	"sync/atomic"
)

// Snapshot is a point-in-time, field-by-field read of a Cell. The six
// numeric fields may belong to different steps of the same worker.
type Snapshot struct {
	Status int32
	T      float64
	X      float64
	V      float64
	A      float64
	Thrust float64
	Drag   float64
}

// Cell is one worker's telemetry slot. The zero value is a valid,
// zeroed cell.
type Cell struct {
	status atomic.Int32
	t      atomic.Uint64
	x      atomic.Uint64
	v      atomic.Uint64
	a      atomic.Uint64
	thrust atomic.Uint64
	drag   atomic.Uint64
}

// Reset zeroes every field. Called once per epoch before a worker is
// (re)bound to the cell.
func (c *Cell) Reset() {
	c.status.Store(0)
	c.t.Store(0)
	c.x.Store(0)
	c.v.Store(0)
	c.a.Store(0)
	c.thrust.Store(0)
	c.drag.Store(0)
}

// SetStatus publishes the worker's current live state.
func (c *Cell) SetStatus(status int32) {
	c.status.Store(status)
}

// SetState publishes the (t, x, v, a, T, D) tuple for the current step.
// Fields are written one at a time, in this order, matching the source's
// per-field lock acquisition order; no atomicity across fields is
// implied or required.
func (c *Cell) SetState(t, x, v, a, thrust, drag float64) {
	c.t.Store(math.Float64bits(t))
	c.x.Store(math.Float64bits(x))
	c.v.Store(math.Float64bits(v))
	c.a.Store(math.Float64bits(a))
	c.thrust.Store(math.Float64bits(thrust))
	c.drag.Store(math.Float64bits(drag))
}

// Snapshot reads every field of the cell. Safe to call concurrently with
// any number of writers or other readers.
func (c *Cell) Snapshot() Snapshot {
	return Snapshot{
		Status: c.status.Load(),
		T:      math.Float64frombits(c.t.Load()),
		X:      math.Float64frombits(c.x.Load()),
		V:      math.Float64frombits(c.v.Load()),
		A:      math.Float64frombits(c.a.Load()),
		Thrust: math.Float64frombits(c.thrust.Load()),
		Drag:   math.Float64frombits(c.drag.Load()),
	}
}

// Channel is a fixed-size group of cells, one per worker slot, allocated
// once and reused across epochs.
type Channel struct {
	cells []Cell
}

// NewChannel allocates a Channel with n cells.
func NewChannel(n int) *Channel {
	return &Channel{cells: make([]Cell, n)}
}

// Len returns the number of cells.
func (ch *Channel) Len() int { return len(ch.cells) }

// Cell returns a pointer to slot i's cell.
func (ch *Channel) Cell(i int) *Cell { return &ch.cells[i] }

// ResetAll zeroes every cell, at the start of an epoch.
func (ch *Channel) ResetAll() {
	for i := range ch.cells {
		ch.cells[i].Reset()
	}
}

// Snapshot returns a copy of every cell's current snapshot.
func (ch *Channel) Snapshot() []Snapshot {
	out := make([]Snapshot, len(ch.cells))
	for i := range ch.cells {
		out[i] = ch.cells[i].Snapshot()
	}
	return out
}
