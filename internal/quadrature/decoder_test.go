package quadrature_test

import (
	"testing"

	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
)

// fakeSink is a minimal LocationSink recording what the decoder asked
// for, without any of motion.Controller's slowdown/stop logic.
type fakeSink struct {
	direction motion.Direction
	status    motion.Status
	processed []motion.Direction
}

func (f *fakeSink) Direction() motion.Direction { return f.direction }
func (f *fakeSink) Status() motion.Status       { return f.status }
func (f *fakeSink) ProcessLocation(dir motion.Direction) int {
	f.processed = append(f.processed, dir)
	return 0
}

// Scenario 6: direction-mismatch detection.
func TestHandleEdgeDirectionMismatchIncrementsDirError(t *testing.T) {
	d := quadrature.New()
	sink := &fakeSink{direction: motion.Up, status: motion.Moving}

	// Seed rotorPosition with an initial edge so the next edge has a
	// real "prev" to diff against.
	d.HandleEdge(sink, 1, 1) // new = 1 + (1-1)*2 = 1

	// Produce diff == 3 (sensor says Down) while motor direction is Up.
	d.HandleEdge(sink, 2, 0) // new = 2 + (1-0)*2 = 4 -> rotor phase wraps via mod

	if d.DirError() == 0 {
		t.Fatalf("expected dir_error to be incremented on direction mismatch")
	}
	if len(sink.processed) != 0 {
		t.Fatalf("expected location NOT to be updated on a mismatched edge, got %v", sink.processed)
	}
}

func TestHandleEdgeUpwardSequenceProcessesUp(t *testing.T) {
	d := quadrature.New()
	sink := &fakeSink{direction: motion.Up, status: motion.Moving}

	// Cyclic upward phase ordering: new_rotor_position walks
	// 1,2,3,4(=0 mod 4),1,... giving diff==1 on every edge after the
	// first (which only seeds rotor_position, per the unknown-prev
	// sentinel).
	edges := []struct {
		sensor uint8
		level  uint8
	}{
		{1, 1}, // new = 1
		{2, 1}, // new = 2
		{1, 0}, // new = 3
		{2, 0}, // new = 4 (phase 0)
		{1, 1}, // new = 1
	}
	for _, e := range edges {
		d.HandleEdge(sink, e.sensor, e.level)
	}

	if len(sink.processed) == 0 {
		t.Fatalf("expected at least one Up location update")
	}
	for _, dir := range sink.processed {
		if dir != motion.Up {
			t.Fatalf("expected all processed edges to be Up, got %v", dir)
		}
	}
}

func TestHandleEdgeIncrementsCorrectTickCounters(t *testing.T) {
	d := quadrature.New()
	sink := &fakeSink{direction: motion.None, status: motion.Stopped}

	d.HandleEdge(sink, 1, 1)
	d.HandleEdge(sink, 2, 1)
	d.HandleEdge(sink, 1, 0)

	d.Snapshot()
	hall1, hall2 := d.SavedTicks()
	if hall1 != 2 {
		t.Fatalf("hall1 ticks = %d, want 2", hall1)
	}
	if hall2 != 1 {
		t.Fatalf("hall2 ticks = %d, want 1", hall2)
	}
	if d.TicksWhileStopped() != 3 {
		t.Fatalf("ticks while stopped = %d, want 3", d.TicksWhileStopped())
	}
}

func TestResetClearsCountersAfterSnapshot(t *testing.T) {
	d := quadrature.New()
	sink := &fakeSink{direction: motion.None, status: motion.Stopped}
	d.HandleEdge(sink, 1, 1)
	d.IncrementIdleTime()
	d.HandleEdge(sink, 1, 0) // second Hall-1 edge: interval = 1
	d.Snapshot()
	d.Reset()

	if d.Interval() != 0 {
		t.Fatalf("interval = %d, want 0 after Reset", d.Interval())
	}
	if hall1, hall2 := d.SavedTicks(); hall1 != 2 || hall2 != 0 {
		t.Fatalf("saved ticks = (%d, %d), want (2, 0) kept across Reset", hall1, hall2)
	}
	d.Snapshot()
	if hall1, hall2 := d.SavedTicks(); hall1 != 0 || hall2 != 0 {
		t.Fatalf("ticks after Reset = (%d, %d), want (0, 0)", hall1, hall2)
	}
}
