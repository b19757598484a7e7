package motion_test

import (
	"testing"
	"time"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/motion"
)

func newTestController(t *testing.T, maxLen uint16) (*motion.Controller, *board.SimBridge, *board.SimClock) {
	t.Helper()
	bridge := board.NewSimBridge()
	clock := board.NewSimClock()
	c := motion.New(motion.Config{
		Bridge:            bridge,
		Clock:             clock,
		GearRatio:         60,
		MaxCurtainLength:  maxLen,
		FullCurtainLength: maxLen,
		DefaultSpeed:      18,
		SlowdownFactor:    8,
		MinSlowdownSpeed:  5,
		Sleep:             func(time.Duration) {}, // no real wait in tests
	})
	return c, bridge, clock
}

// Scenario 1: stop at target, upward.
func TestProcessLocationStopsOneBeforeTargetGoingUp(t *testing.T) {
	c, bridge, _ := newTestController(t, 1000)
	c.SetLocation(500)
	c.SetTargetLocation(200)
	if err := c.MotorUp(18); err != nil {
		t.Fatalf("MotorUp: %v", err)
	}

	for c.Location() > 201 && c.Status() != motion.Stopped {
		c.ProcessLocation(motion.Up)
	}

	if got := c.Location(); got != 201 {
		t.Fatalf("location = %d, want 201", got)
	}
	if c.Status() != motion.Stopped {
		t.Fatalf("status = %v, want Stopped", c.Status())
	}
	if c.Direction() != motion.None {
		t.Fatalf("direction = %v, want None", c.Direction())
	}
	if bridge.Duty(board.ChannelLow1) != 0 || bridge.Duty(board.ChannelLow2) != 0 {
		t.Fatalf("expected both compare registers zero after stop")
	}
	if bridge.High(board.HighSide1) || bridge.High(board.HighSide2) {
		t.Fatalf("expected both high-side gates low after stop")
	}
}

// Scenario 3: slowdown curve.
func TestProcessLocationSlowdownCurve(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	c.SetLocation(0)
	c.SetTargetLocation(30)
	if err := c.MotorDown(20); err != nil {
		t.Fatalf("MotorDown: %v", err)
	}

	for c.Location() < 15 {
		c.ProcessLocation(motion.Down)
	}
	if got := c.TargetSpeed(); got != 15 {
		t.Fatalf("target speed at distance 15 = %d, want 15", got)
	}
	if c.Status() != motion.Stopping {
		t.Fatalf("status at distance 15 = %v, want Stopping", c.Status())
	}

	for c.Location() < 26 {
		c.ProcessLocation(motion.Down)
	}
	if got := c.TargetSpeed(); got != 5 {
		t.Fatalf("target speed at distance 4 = %d, want 5 (min_slowdown_speed)", got)
	}
}

func TestMotorStopInvariants(t *testing.T) {
	c, bridge, _ := newTestController(t, 1000)
	if err := c.MotorUp(18); err != nil {
		t.Fatalf("MotorUp: %v", err)
	}
	c.MotorStop()

	if c.Status() != motion.Stopped {
		t.Fatalf("status = %v, want Stopped", c.Status())
	}
	if c.Direction() != motion.None {
		t.Fatalf("direction = %v, want None", c.Direction())
	}
	if c.CurrPWM() != 0 {
		t.Fatalf("curr_pwm = %d, want 0", c.CurrPWM())
	}
	if bridge.Running(board.ChannelLow1) || bridge.Running(board.ChannelLow2) {
		t.Fatalf("expected both PWM channels stopped")
	}
}

func TestHandleStallDetectedUpwardEntersCalibration(t *testing.T) {
	c, _, clock := newTestController(t, 1000)
	if err := c.MotorUp(18); err != nil {
		t.Fatalf("MotorUp: %v", err)
	}
	clock.Set(5000)
	c.HandleStallDetected(5000)

	if c.Status() != motion.CalibratingEndPoint {
		t.Fatalf("status = %v, want CalibratingEndPoint", c.Status())
	}
	if got := c.EndpointCalibrationStartAt(); got != 5000 {
		t.Fatalf("endpoint calibration start = %d, want 5000", got)
	}
}

func TestHandleStallDetectedDownwardIsError(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	if err := c.MotorDown(18); err != nil {
		t.Fatalf("MotorDown: %v", err)
	}
	c.HandleStallDetected(1000)

	if c.Status() != motion.Error {
		t.Fatalf("status = %v, want Error", c.Status())
	}
}

func TestFinishEndpointCalibrationResetsLocation(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	c.SetCalibrating(true)
	c.SetLocation(777)
	c.FinishEndpointCalibration()

	if c.Status() != motion.Stopped {
		t.Fatalf("status = %v, want Stopped", c.Status())
	}
	if c.Calibrating() {
		t.Fatalf("expected calibrating to be cleared")
	}
	if c.Location() != 0 {
		t.Fatalf("location = %d, want 0", c.Location())
	}
}

func TestProcessDeferredNoCommandIsNoOp(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	before := c.Status()
	if err := c.ProcessDeferred(); err != nil {
		t.Fatalf("ProcessDeferred: %v", err)
	}
	if c.Status() != before {
		t.Fatalf("status changed on NoCommand: %v -> %v", before, c.Status())
	}
}

func TestProcessDeferredDrainsMailboxOnce(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	c.Mailbox().Enqueue(motion.MotorUp)
	if err := c.ProcessDeferred(); err != nil {
		t.Fatalf("ProcessDeferred: %v", err)
	}
	if c.Status() != motion.Moving {
		t.Fatalf("status = %v, want Moving", c.Status())
	}
	if c.Direction() != motion.Up {
		t.Fatalf("direction = %v, want Up", c.Direction())
	}
	// Draining again with nothing queued must not restart the motor.
	if err := c.ProcessDeferred(); err != nil {
		t.Fatalf("second ProcessDeferred: %v", err)
	}
}

// Open-question regression: the speed regulator must never be the
// sole source of a stop, even when target_speed collapses to 0.
func TestAdjustPWMNeverStopsTheMotor(t *testing.T) {
	c, _, _ := newTestController(t, 1000)
	if err := c.MotorDown(18); err != nil {
		t.Fatalf("MotorDown: %v", err)
	}
	c.SetTargetSpeed(0)
	for i := 0; i < 300; i++ {
		c.AdjustPWM(-1)
	}
	if c.Status() != motion.Moving {
		t.Fatalf("status = %v, want Moving (regulator must not stop the motor)", c.Status())
	}
}
