// Package speedreg implements the 10ms closed-loop PWM regulator:
// it nudges curr_pwm toward whatever duty makes the measured Hall-1
// edge rate match target_speed, braking harder the further off target
// the motor currently runs.
package speedreg

import (
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
)

// Regulator has no state of its own; every input it needs lives on
// the controller and decoder it is handed each tick.
type Regulator struct{}

// Tick runs one 10ms regulation pass. It is a no-op outside
// {Moving, Stopping} (enforced inside Controller.AdjustPWM), so
// callers may invoke it unconditionally from the 10ms timer ISR.
// curr_pwm never alone causes a stop here — dropping to 0 only ever
// happens via MotorStop, never via this loop collapsing the setpoint.
func (Regulator) Tick(c *motion.Controller, d *quadrature.Decoder) {
	rpm := d.RPM(c.GearRatio())
	target := c.TargetSpeed()
	curr := c.CurrPWM()

	switch {
	case rpm < uint32(target) && curr < 254:
		delta := int16(1)
		if target-uint16(rpm) > 2 {
			delta++
		}
		c.AdjustPWM(delta)

	case rpm > uint32(target) && curr > 1:
		delta := int16(-1)
		over := uint16(rpm) - target
		if over > 2 {
			delta--
		}
		if over > 4 {
			delta--
		}
		c.AdjustPWM(delta)
	}
}
