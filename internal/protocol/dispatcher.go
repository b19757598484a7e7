// Package protocol parses the fixed-layout UART command frames and
// dispatches them against a motion.Controller, a quadrature.Decoder
// (for the debug opcodes) and a persisted settings store, producing
// reply frames where the opcode calls for one.
//
// Dispatch is meant to run from UART RX interrupt context: motor
// starts and stops only go into the controller's mailbox, so it never
// waits on motion. It does set controller fields directly (location,
// limits, speeds, calibrating) and, while the motor is Stopped, writes
// changed settings to the NVM.
package protocol

import (
	"errors"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/motion"
	"github.com/faern/fyrtur-motor-board/internal/quadrature"
	"github.com/faern/fyrtur-motor-board/internal/settings"
)

// ErrFrameTooShort is returned when rx lacks even the 5-byte
// preamble+opcode the dispatcher needs to find cmd1/cmd2.
var ErrFrameTooShort = errors.New("protocol: frame shorter than opcode header")

// BatteryReader abstracts calculate_battery(), a stub returning a
// constant in the original firmware; kept as a seam so a later
// revision can wire in a real fuel gauge without touching Dispatcher.
type BatteryReader interface {
	Battery() uint8
}

// StubBattery reproduces calculate_battery()'s constant reply.
type StubBattery struct{}

func (StubBattery) Battery() uint8 { return 0x12 }

// VoltageChecker decides whether a motion command may proceed,
// resolving the spec's open "implementation hook" in favor of
// enforcement: check_voltage() is defined in the original but never
// shown gating a command, which we treat as an oversight rather than
// intent.
type VoltageChecker func(analog board.AnalogInputs, minimumVoltage uint16) bool

// DefaultVoltageChecker passes when analog is unavailable (slim
// builds omit analog readings per the glossary), otherwise requires
// voltage/30 to meet or exceed the stored minimum.
func DefaultVoltageChecker(analog board.AnalogInputs, minimumVoltage uint16) bool {
	if analog == nil {
		return true
	}
	return analog.Voltage()/30 >= minimumVoltage
}

// Dispatcher wires the protocol parser to its collaborators.
type Dispatcher struct {
	controller *motion.Controller
	decoder    *quadrature.Decoder
	nvm        board.NVM
	analog     board.AnalogInputs
	battery    BatteryReader
	voltageOK  VoltageChecker

	minimumVoltage  uint16
	autoCalibration bool
}

// New builds a Dispatcher seeded from previously loaded settings.
func New(controller *motion.Controller, decoder *quadrature.Decoder, nvm board.NVM, analog board.AnalogInputs, loaded settings.Values) *Dispatcher {
	return &Dispatcher{
		controller:      controller,
		decoder:         decoder,
		nvm:             nvm,
		analog:          analog,
		battery:         StubBattery{},
		voltageOK:       DefaultVoltageChecker,
		minimumVoltage:  loaded.MinimumVoltage,
		autoCalibration: loaded.AutoCalibration,
	}
}

// SetBatteryReader overrides the default stub, e.g. once a real
// fuel-gauge driver exists.
func (d *Dispatcher) SetBatteryReader(b BatteryReader) { d.battery = b }

// SetVoltageChecker overrides the voltage gate, mainly for tests.
func (d *Dispatcher) SetVoltageChecker(v VoltageChecker) { d.voltageOK = v }

// Dispatch parses one received frame and returns the reply frame, if
// the opcode produces one. A nil, nil result means the opcode was
// handled with no reply (motion commands, settings writes) or was
// unrecognized and silently ignored, per the spec's error-handling
// policy for unknown opcodes.
func (d *Dispatcher) Dispatch(rx []byte) ([]byte, error) {
	if len(rx) < 5 {
		return nil, ErrFrameTooShort
	}
	cmd1, cmd2 := rx[3], rx[4]
	opcode := uint16(cmd1)<<8 | uint16(cmd2)

	switch opcode {
	case opUp:
		d.enqueueMove(motion.Up, motion.TargetLocationCalibrate)
		return nil, nil
	case opDown:
		d.enqueueMove(motion.Down, int32(d.controller.MaxCurtainLength()))
		return nil, nil
	case opUp17:
		target := d.controller.Location() - d.controller.TicksForDegrees(17)
		if target < 0 {
			target = 0
		}
		d.enqueueMove(motion.Up, target)
		return nil, nil
	case opDown17:
		target := d.controller.Location() + d.controller.TicksForDegrees(17)
		if max := int32(d.controller.MaxCurtainLength()); target > max {
			target = max
		}
		d.enqueueMove(motion.Down, target)
		return nil, nil
	case opStop:
		d.controller.Mailbox().Enqueue(motion.Stop)
		return nil, nil
	case opOverrideUp90:
		d.enqueueMove(motion.Up, d.controller.Location()-d.controller.TicksForDegrees(90))
		return nil, nil
	case opOverrideDown90:
		d.enqueueMove(motion.Down, d.controller.Location()+d.controller.TicksForDegrees(90))
		return nil, nil
	case opOverrideUp6:
		d.enqueueMove(motion.Up, d.controller.Location()-d.controller.TicksForDegrees(6))
		return nil, nil
	case opOverrideDown6:
		d.enqueueMove(motion.Down, d.controller.Location()+d.controller.TicksForDegrees(6))
		return nil, nil
	case opOverrideDown5Rv:
		d.enqueueMove(motion.Down, d.controller.Location()+d.controller.TicksForDegrees(1800))
		return nil, nil
	case opSetMaxLength:
		d.applySetMaxLength()
		return nil, nil
	case opSetFullLength:
		d.applySetFullLength()
		d.applySetMaxLength() // fallthrough: setting full also resets max
		return nil, nil
	case opResetLength:
		d.controller.SetMaxCurtainLength(d.controller.FullCurtainLength())
		d.controller.SetCalibrating(true)
		return nil, nil
	case opGetStatus:
		return d.replyStatus(), nil
	case opGetVersion:
		return d.replyVersion(), nil
	case opGetLocation:
		return d.replyLocation(), nil
	case opGetStatusExt:
		return d.replyStatusExt(), nil
	case opGetLimits:
		return d.replyLimits(), nil
	case opDebug:
		return d.replyDebug(), nil
	case opSensorDebug:
		return d.replySensorDebug(), nil
	}

	if cmd1 == opGoToPercent {
		if d.controller.Calibrating() {
			return nil, nil
		}
		d.goTo(d.controller.LocationFromPercent(cmd2))
		return nil, nil
	}

	payload := uint16(cmd1&0x0F)<<8 | uint16(cmd2)

	switch cmd1 & 0xF0 {
	case prefixExtGoTo:
		if d.controller.Calibrating() {
			return nil, nil
		}
		max := int32(d.controller.MaxCurtainLength())
		target := int32(payload) * max / 1600 // 12-bit fixed point, 4 fractional bits, percent/16
		d.goTo(target)

	case prefixSetSpeed:
		if cmd2 > 1 {
			d.controller.SetDefaultSpeed(uint16(cmd2))
			if d.controller.Status() == motion.Moving || d.controller.Status() == motion.Stopping {
				d.controller.SetTargetSpeed(uint16(cmd2))
			}
		}

	case prefixSetDefaultSpeed:
		if cmd2 > 0 {
			stopped := d.controller.Status() == motion.Stopped
			if settings.Persist(d.nvm, settings.SlotDefaultSpeed, uint16(cmd2), stopped) || stopped {
				d.controller.SetDefaultSpeed(uint16(cmd2))
			}
		}

	case prefixSetMinVoltage:
		stopped := d.controller.Status() == motion.Stopped
		if settings.Persist(d.nvm, settings.SlotMinimumVoltage, uint16(cmd2), stopped) || stopped {
			d.minimumVoltage = uint16(cmd2)
		}

	case prefixSetLocation:
		d.setLocation(int32(payload) << 1)

	case prefixSetAutoCal:
		stopped := d.controller.Status() == motion.Stopped
		enabled := cmd2 != 0
		if settings.PersistBool(d.nvm, settings.SlotAutoCalibration, enabled, stopped) || stopped {
			d.autoCalibration = enabled
		}

	case prefixGoToLocation:
		if d.controller.Calibrating() {
			return nil, nil
		}
		d.goTo(int32(payload) << 1)

	case prefixSetSlowdownFactor:
		d.controller.SetSlowdownFactor(uint16(cmd2))

	case prefixSetMinSlowdownSpd:
		d.controller.SetMinSlowdownSpeed(uint16(cmd2))
	}

	return nil, nil
}

// enqueueMove is the voltage-gated common path for every opcode that
// sets a target location and enqueues a deferred MotorUp/MotorDown.
func (d *Dispatcher) enqueueMove(dir motion.Direction, target int32) {
	if !d.voltageOK(d.analog, d.minimumVoltage) {
		return
	}
	d.controller.SetTargetLocation(target)
	if dir == motion.Up {
		d.controller.Mailbox().Enqueue(motion.MotorUp)
	} else {
		d.controller.Mailbox().Enqueue(motion.MotorDown)
	}
}

// goTo picks direction by comparing target against current location
// (< location chooses Up, everything else Down — no explicit
// equal-location case, matching motor.c's handle_command).
func (d *Dispatcher) goTo(target int32) {
	if target < d.controller.Location() {
		d.enqueueMove(motion.Up, target)
		return
	}
	d.enqueueMove(motion.Down, target)
}

// setLocation implements the 0x50 family: an unconditional location
// overwrite (no voltage gate — it never moves the motor) that also
// ends any in-progress calibration.
func (d *Dispatcher) setLocation(loc int32) {
	d.controller.SetLocation(loc)
	d.controller.SetCalibrating(false)
}

func (d *Dispatcher) applySetMaxLength() {
	loc := uint16(d.controller.Location())
	stopped := d.controller.Status() == motion.Stopped
	if settings.Persist(d.nvm, settings.SlotMaxCurtainLength, loc, stopped) || stopped {
		d.controller.SetMaxCurtainLength(loc)
	}
}

func (d *Dispatcher) applySetFullLength() {
	loc := uint16(d.controller.Location())
	stopped := d.controller.Status() == motion.Stopped
	if settings.Persist(d.nvm, settings.SlotFullCurtainLength, loc, stopped) || stopped {
		d.controller.SetFullCurtainLength(loc)
	}
}
