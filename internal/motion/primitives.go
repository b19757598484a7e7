package motion

import "github.com/faern/fyrtur-motor-board/internal/board"

// MotorStop is motor_stop(): de-assert both high-side gates, stop
// both PWM channels, zero both compare registers, and reset the
// speed/direction state. It is IRQ-safe — only register and status
// writes, no waits — so the quadrature decoder may call it directly
// from GPIO edge context via ProcessLocation.
func (c *Controller) MotorStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.motorStopLocked()
}

func (c *Controller) motorStopLocked() {
	_ = c.bridge.SetHigh(board.HighSide1, false)
	_ = c.bridge.SetHigh(board.HighSide2, false)
	_ = c.bridge.PWMStop(board.ChannelLow1)
	_ = c.bridge.PWMStop(board.ChannelLow2)
	_ = c.bridge.PWMSetDuty(board.ChannelLow1, 0)
	_ = c.bridge.PWMSetDuty(board.ChannelLow2, 0)

	if c.hall != nil {
		c.hall.Snapshot()
		c.hall.Reset()
	}

	c.status = Stopped
	c.direction = None
	c.currPWM = 0
	c.targetSpeed = 0
}

// MotorUp starts upward motion at the given RPM setpoint, sharing
// motor_start_common with MotorDown.
func (c *Controller) MotorUp(speed uint16) error {
	return c.motorStartCommon(Up, speed)
}

// MotorDown starts downward motion at the given RPM setpoint.
func (c *Controller) MotorDown(speed uint16) error {
	return c.motorStartCommon(Down, speed)
}

// motorStartCommon is motor_start_common: stop, settle for ~10ms
// (main-loop-only busy wait, hence commands needing it are deferred
// into the mailbox rather than run from an ISR), then energize the
// bridge for the requested direction.
func (c *Controller) motorStartCommon(dir Direction, speed uint16) error {
	c.mu.Lock()
	c.motorStopLocked()
	c.mu.Unlock()

	c.sleep(settleDelay)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.movementStartedAt = c.clock.NowMillis()
	c.targetSpeed = speed
	c.currPWM = InitialPWM
	c.status = Moving

	switch dir {
	case Up:
		if err := c.bridge.PWMStart(board.ChannelLow2); err != nil {
			return err
		}
		if err := c.bridge.PWMSetDuty(board.ChannelLow2, InitialPWM); err != nil {
			return err
		}
		if err := c.bridge.SetHigh(board.HighSide1, true); err != nil {
			return err
		}
		c.direction = Up
	case Down:
		if err := c.bridge.PWMStart(board.ChannelLow1); err != nil {
			return err
		}
		if err := c.bridge.PWMSetDuty(board.ChannelLow1, InitialPWM); err != nil {
			return err
		}
		if err := c.bridge.SetHigh(board.HighSide2, true); err != nil {
			return err
		}
		c.direction = Down
	}
	return nil
}

// HandleStallDetected is motor_stopped(): invoked by the stall
// supervisor once it decides the absence of Hall edges means the
// motor has stalled. An upward stall while Moving is the normal way
// the top hard stop is discovered; a downward stall is anomalous.
func (c *Controller) HandleStallDetected(now uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	priorStatus := c.status
	priorDirection := c.direction
	c.motorStopLocked()

	switch {
	case priorStatus == Moving && priorDirection == Up:
		c.status = CalibratingEndPoint
		c.endpointCalibrationStartAt = now
	case priorStatus == Moving && priorDirection == Down:
		c.status = Error
	case priorStatus == Stopping:
		c.status = Stopped
	}
}

// FinishEndpointCalibration is the stall supervisor's
// ENDPOINT_CALIBRATION_PERIOD timeout transition: the settling
// period is over, so the top stop becomes the new location zero.
func (c *Controller) FinishEndpointCalibration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Stopped
	c.calibrating = false
	c.location = 0
}

// AdjustPWM applies delta to curr_pwm (clamped to [0,254]) and writes
// the result to the compare register of the channel matching the
// current direction (CCR4/ChannelLow2 when Up, CCR1/ChannelLow1 when
// Down). It is a no-op outside {Moving, Stopping}, so the regulator's
// own status check in the spec becomes this guard. Returns the
// resulting curr_pwm.
func (c *Controller) AdjustPWM(delta int16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Moving && c.status != Stopping {
		return c.currPWM
	}

	next := int16(c.currPWM) + delta
	if next < 0 {
		next = 0
	}
	if next > 254 {
		next = 254
	}
	c.currPWM = uint8(next)

	ch := board.ChannelLow2
	if c.direction == Down {
		ch = board.ChannelLow1
	}
	_ = c.bridge.PWMSetDuty(ch, c.currPWM)
	return c.currPWM
}

// ProcessDeferred is motor_process(): drains the one-slot mailbox and
// acts on it. It must run from main-loop context since MotorUp/Down
// perform the settling wait. NoCommand is a true no-op, matching the
// original's implicit default case.
func (c *Controller) ProcessDeferred() error {
	switch c.mailbox.Drain() {
	case MotorUp:
		return c.MotorUp(c.DefaultSpeed())
	case MotorDown:
		return c.MotorDown(c.DefaultSpeed())
	case Stop:
		c.MotorStop()
	case NoCommand:
	}
	return nil
}
