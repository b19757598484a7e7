// Package stall implements the 1ms stall and endpoint-calibration
// supervisor: it watches for the absence of Hall-1 edges while the
// motor is powered (a stall) and, separately, times out the settling
// period after an upward stall is treated as the top hard stop.
package stall

import (
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
)

// Timing constants. HallTimeout and MovementGracePeriod (and the
// 1000ms EndpointCalibrationPeriod that New sets) come straight from
// the board's named constants; HallTimeoutWhileStopping is not given an explicit
// value anywhere in the retrieved source, only described as "longer
// leash" for a Stopping-state stall — we pick a value comfortably
// above HallTimeout and document the choice in DESIGN.md.
const (
	HallTimeout              = 300  // ms, HALL_SENSOR_TIMEOUT
	HallTimeoutWhileStopping = 600  // ms, HALL_SENSOR_TIMEOUT_WHILE_STOPPING
	MovementGracePeriod      = 2000 // ms, HALL_SENSOR_GRACE_PERIOD
)

// Supervisor has no state of its own; everything it reasons about
// lives on the controller and decoder passed to Tick1ms.
type Supervisor struct {
	// EndpointCalibrationPeriod is board-specific (~1s per the spec);
	// it is a field rather than a constant so board bring-up can tune
	// it without touching this package.
	EndpointCalibrationPeriod uint32
}

// New returns a Supervisor using the default endpoint settling period.
func New() *Supervisor {
	return &Supervisor{EndpointCalibrationPeriod: 1000}
}

// Tick1ms runs one 1ms supervisor pass.
func (s *Supervisor) Tick1ms(c *motion.Controller, d *quadrature.Decoder, now uint32) {
	switch c.Status() {
	case motion.Moving, motion.Stopping:
		d.IncrementIdleTime()

		pastGrace := now-c.MovementStartedAt() > MovementGracePeriod
		idleTooLong := d.IdleTime() > HallTimeout
		if !pastGrace || !idleTooLong {
			return
		}

		if c.Status() == motion.Stopping && d.IdleTime() < HallTimeoutWhileStopping {
			return // slow-down stalls get a longer leash
		}

		c.HandleStallDetected(now)
		d.ResetIdleTime()

	case motion.CalibratingEndPoint:
		if now-c.EndpointCalibrationStartAt() > s.EndpointCalibrationPeriod {
			c.FinishEndpointCalibration()
		}
	}
}
