package stall_test

import (
	"testing"
	"time"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
	"github.com/faern/fyrtur-motor-board/internal/stall"
)

func newRig(t *testing.T) (*motion.Controller, *quadrature.Decoder, *board.SimClock) {
	t.Helper()
	clock := board.NewSimClock()
	c := motion.New(motion.Config{
		Bridge:            board.NewSimBridge(),
		Clock:             clock,
		GearRatio:         60,
		MaxCurtainLength:  1000,
		FullCurtainLength: 1000,
		DefaultSpeed:      18,
		SlowdownFactor:    8,
		MinSlowdownSpeed:  5,
		Sleep:             func(time.Duration) {},
	})
	return c, quadrature.New(), clock
}

// Scenario 2 (first half): absence of Hall edges past grace+timeout
// while moving up triggers stall -> CalibratingEndPoint.
func TestSupervisorDetectsStallAfterGraceAndTimeout(t *testing.T) {
	c, d, clock := newRig(t)
	clock.Set(0)
	if err := c.MotorUp(18); err != nil {
		t.Fatalf("MotorUp: %v", err)
	}

	sup := stall.New()
	now := uint32(0)
	for now = 0; now < 2000+stall.HallTimeout+1; now++ {
		sup.Tick1ms(c, d, now)
	}

	if c.Status() != motion.CalibratingEndPoint {
		t.Fatalf("status = %v, want CalibratingEndPoint", c.Status())
	}
}

// Scenario 2 (second half): after ENDPOINT_CALIBRATION_PERIOD, the
// stall supervisor finalizes the calibration to location zero.
func TestSupervisorFinishesEndpointCalibration(t *testing.T) {
	c, d, _ := newRig(t)
	c.SetCalibrating(true)
	// Force controller straight into CalibratingEndPoint as if a stall
	// had just been detected at t=0.
	if err := c.MotorUp(18); err != nil {
		t.Fatalf("MotorUp: %v", err)
	}
	c.HandleStallDetected(0)
	if c.Status() != motion.CalibratingEndPoint {
		t.Fatalf("precondition failed: status = %v", c.Status())
	}

	sup := stall.New()
	for now := uint32(0); now <= sup.EndpointCalibrationPeriod+1; now++ {
		sup.Tick1ms(c, d, now)
	}

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

// TestSupervisorGivesStoppingStateLongerLeash isolates the
// idle-timeout gate itself: with the grace period already elapsed,
// an idle gap between HallTimeout and HallTimeoutWhileStopping must
// not stall out a Stopping motor. The Moving case is covered by
// TestSupervisorStallsMovingMotorAtPlainTimeout.
func TestSupervisorGivesStoppingStateLongerLeash(t *testing.T) {
	c, d, clock := newRig(t)
	clock.Set(0)
	c.SetLocation(0)
	c.SetTargetLocation(30)
	if err := c.MotorDown(20); err != nil {
		t.Fatalf("MotorDown: %v", err)
	}
	for c.Location() < 15 {
		c.ProcessLocation(motion.Down)
	}
	if c.Status() != motion.Stopping {
		t.Fatalf("precondition failed: status = %v, want Stopping", c.Status())
	}

	// Simulate an idle gap strictly between HallTimeout (300) and
	// HallTimeoutWhileStopping (600), with the grace period already
	// elapsed (now far past movement_started_timestamp == 0).
	for i := 0; i < stall.HallTimeoutWhileStopping-100; i++ {
		d.IncrementIdleTime()
	}
	sup := stall.New()
	sup.Tick1ms(c, d, 2001)

	if c.Status() != motion.Stopping {
		t.Fatalf("status = %v, want Stopping to survive the longer-leash idle gap", c.Status())
	}
}

func TestSupervisorStallsMovingMotorAtPlainTimeout(t *testing.T) {
	c, d, clock := newRig(t)
	clock.Set(0)
	if err := c.MotorDown(18); err != nil {
		t.Fatalf("MotorDown: %v", err)
	}
	for i := 0; i < stall.HallTimeout+1; i++ {
		d.IncrementIdleTime()
	}
	sup := stall.New()
	sup.Tick1ms(c, d, 2001)

	if c.Status() != motion.Error {
		t.Fatalf("status = %v, want Error (downward stall is anomalous)", c.Status())
	}
}
