package telemetry

import (
	"sync"
	"testing"
)

func TestCellSetStateSnapshot(t *testing.T) {
	var c Cell
	c.SetStatus(3)
	c.SetState(1.0, 2.0, 3.0, 4.0, 5.0, 6.0)

	snap := c.Snapshot()
	if snap.Status != 3 || snap.T != 1.0 || snap.X != 2.0 || snap.V != 3.0 ||
		snap.A != 4.0 || snap.Thrust != 5.0 || snap.Drag != 6.0 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
}

func TestCellReset(t *testing.T) {
	var c Cell
	c.SetStatus(9)
	c.SetState(1, 2, 3, 4, 5, 6)
	c.Reset()

	snap := c.Snapshot()
	if snap != (Snapshot{}) {
		t.Fatalf("expected zeroed snapshot after Reset, got %+v", snap)
	}
}

// TestCellConcurrentAccess exercises the field-granular promise: reads
// racing writes never panic or corrupt bit patterns, even though a
// reader may observe fields from different writes mixed together.
func TestCellConcurrentAccess(t *testing.T) {
	var c Cell
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.SetState(float64(i), float64(i), float64(i), float64(i), float64(i), float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Snapshot()
		}
	}()
	wg.Wait()
}

func TestChannelResetAllAndSnapshot(t *testing.T) {
	ch := NewChannel(4)
	if ch.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", ch.Len())
	}
	ch.Cell(1).SetState(10, 20, 30, 40, 50, 60)
	ch.Cell(1).SetStatus(7)

	snaps := ch.Snapshot()
	if snaps[1].T != 10 || snaps[1].Status != 7 {
		t.Fatalf("cell 1 snapshot = %+v", snaps[1])
	}
	if snaps[0] != (Snapshot{}) {
		t.Fatalf("cell 0 should still be zeroed, got %+v", snaps[0])
	}

	ch.ResetAll()
	for i, s := range ch.Snapshot() {
		if s != (Snapshot{}) {
			t.Fatalf("cell %d not zeroed after ResetAll: %+v", i, s)
		}
	}
}
