// Package quadrature turns the two Hall-sensor edge interrupts into
// signed location deltas and RPM timing data, handing counted edges
// to a motion.LocationSink. It also tracks passive (unpowered)
// movement, since the curtain can fall under tension while
// de-energized and the decoder is the only component watching edges.
package quadrature

import (
	"github.com/orsinium-labs/tinymath"

	"github.com/faern/fyrtur-motor-board/internal/motion"
)

// unknownRotorPosition is rotor_position's initial sentinel: no prior
// edge exists yet, so diff-based direction inference is skipped for
// the very first edge after boot. Reset does not touch rotorPosition,
// so edges after a motor_stop are still diffed against the last phase.
const unknownRotorPosition int8 = -1

// LocationSink is the motion-side contract the decoder drives: it
// needs to read current direction/status to resolve ambiguous edges
// and debug bookkeeping, and to report counted edges for location
// update. motion.Controller implements this.
type LocationSink interface {
	Direction() motion.Direction
	Status() motion.Status
	ProcessLocation(dir motion.Direction) int
}

// Decoder is the quadrature state machine plus the debug counters the
// protocol's 0xCCD1/0xCCD2 opcodes expose.
type Decoder struct {
	rotorPosition int8

	hallSensor1Ticks    uint32
	hallSensor2Ticks    uint32
	hallSensor1IdleTime uint32
	hallSensor1Interval uint32

	dirError                            uint32
	sensorTicksWhileStopped             uint32
	sensorTicksWhileCalibratingEndPoint uint32

	savedHallSensor1Ticks uint32
	savedHallSensor2Ticks uint32
}

// New returns a Decoder in its post-boot/post-stop state.
func New() *Decoder {
	return &Decoder{rotorPosition: unknownRotorPosition}
}

// HandleEdge is the GPIO edge ISR body for both Hall sensors.
// sensorID is 1 or 2; level is the new pin level (0 or 1).
func (d *Decoder) HandleEdge(sink LocationSink, sensorID uint8, level uint8) {
	if sensorID == 1 {
		d.hallSensor1Ticks++
		if d.hallSensor1Ticks >= 2 {
			d.hallSensor1Interval = d.hallSensor1IdleTime
		}
		d.hallSensor1IdleTime = 0
	} else {
		d.hallSensor2Ticks++
	}

	newRotorPosition := int8(sensorID) + (1-int8(level))*2
	prev := d.rotorPosition
	d.rotorPosition = newRotorPosition

	if prev != unknownRotorPosition {
		diff := (4 + int(newRotorPosition) - int(prev)) % 4
		switch diff {
		case 1:
			if sink.Direction() != motion.Down {
				sink.ProcessLocation(motion.Up)
			} else {
				d.dirError++
			}
		case 3:
			if sink.Direction() != motion.Up {
				sink.ProcessLocation(motion.Down)
			} else {
				d.dirError++
			}
		default:
			// direction-change event; no location update.
		}
	}

	switch sink.Status() {
	case motion.Stopped:
		d.sensorTicksWhileStopped++
	case motion.CalibratingEndPoint:
		d.sensorTicksWhileCalibratingEndPoint++
	}
}

// IncrementIdleTime advances hall_sensor_1_idle_time by one
// millisecond; the stall supervisor calls this once per 1ms tick
// while the motor is powered.
func (d *Decoder) IncrementIdleTime() {
	d.hallSensor1IdleTime++
}

func (d *Decoder) IdleTime() uint32 { return d.hallSensor1IdleTime }

func (d *Decoder) ResetIdleTime() { d.hallSensor1IdleTime = 0 }

// Interval is hall_sensor_1_interval, the ms gap between the last two
// Hall-1 edges, consumed by the speed regulator's RPM calculation.
func (d *Decoder) Interval() uint32 { return d.hallSensor1Interval }

// RPM is get_rpm(): 60000/(GEAR_RATIO*2*hall_sensor_1_interval),
// rounded rather than sequentially truncated since both operands are
// carried as float32 through tinymath (matching the teacher's use of
// tinymath for fixed-point-adjacent motor math in tmc5160/helpers.go).
// Returns 0 when the interval is unknown, matching the spec's "0 if
// unknown" fallback.
func (d *Decoder) RPM(gearRatio uint16) uint32 {
	if d.hallSensor1Interval == 0 || gearRatio == 0 {
		return 0
	}
	denom := float32(gearRatio) * 2 * float32(d.hallSensor1Interval)
	rpm := tinymath.Round(60000.0 / denom)
	if rpm < 0 {
		return 0
	}
	return uint32(rpm)
}

func (d *Decoder) DirError() uint32 { return d.dirError }

func (d *Decoder) TicksWhileStopped() uint32 { return d.sensorTicksWhileStopped }

func (d *Decoder) TicksWhileCalibratingEndPoint() uint32 {
	return d.sensorTicksWhileCalibratingEndPoint
}

// SavedTicks returns the Hall-1/Hall-2 tick counts captured by the
// last Snapshot, for the 0xCCD2 sensor-debug reply.
func (d *Decoder) SavedTicks() (hall1, hall2 uint32) {
	return d.savedHallSensor1Ticks, d.savedHallSensor2Ticks
}

// Snapshot captures the live tick counters for later debug reads.
// Implements motion.HallCounters.
func (d *Decoder) Snapshot() {
	d.savedHallSensor1Ticks = d.hallSensor1Ticks
	d.savedHallSensor2Ticks = d.hallSensor2Ticks
}

// Reset clears the tick counters, interval, and idle time — the
// decoder-owned half of motor_stop()'s field list. Implements
// motion.HallCounters.
func (d *Decoder) Reset() {
	d.hallSensor1Ticks = 0
	d.hallSensor2Ticks = 0
	d.hallSensor1Interval = 0
	d.hallSensor1IdleTime = 0
}
