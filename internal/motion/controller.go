// Package motion owns the motion state machine: the Controller type
// groups the dozens of free variables the original design keeps as
// globals into one explicit object passed by reference (per the
// hardware-abstraction design note), with a single mutex guarding
// every field it touches from the main loop, the GPIO edge interrupt,
// and the periodic ISRs.
package motion

import (
	"sync"
	"time"

	"github.com/orsinium-labs/tinymath"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/clamp"
)

// InitialPWM is the duty cycle (0-254) a fresh motor_up/motor_down
// starts at before the speed regulator takes over.
const InitialPWM uint8 = 60

// TargetLocationCalibrate is the target_location sentinel meaning
// "drive upward until stall, for endpoint calibration".
const TargetLocationCalibrate int32 = -1

// settleDelay is the busy-settling wait motor_start_common performs
// between de-energizing the bridge and re-energizing it the other
// way; it only ever runs from main-loop context (see ProcessDeferred).
const settleDelay = 10 * time.Millisecond

// HallCounters is the narrow seam the controller uses to snapshot and
// clear the quadrature decoder's tick counters on every motor_stop,
// without the motion package importing the decoder (which itself
// depends on motion for LocationSink). internal/quadrature.Decoder
// implements this.
type HallCounters interface {
	Snapshot()
	Reset()
}

// Config seeds a fresh Controller. GearRatio, SlowdownFactor and
// MinSlowdownSpeed are board/settings-derived; SlowdownFactor and
// MinSlowdownSpeed may be changed later through the corresponding
// setters (e.g. from protocol commands), while GearRatio has no setter
// and is fixed at construction.
type Config struct {
	Bridge board.Bridge
	Clock  board.Clock

	GearRatio uint16

	MaxCurtainLength  uint16
	FullCurtainLength uint16
	DefaultSpeed      uint16
	SlowdownFactor    uint16
	MinSlowdownSpeed  uint16

	// Sleep overrides the settling wait for tests; nil defaults to
	// time.Sleep.
	Sleep func(time.Duration)
}

// Controller is the single explicit motion-state object. Every
// exported method is safe to call from any of the five execution
// contexts named in the spec (main loop, 10ms ISR, 1ms ISR, GPIO edge
// ISR, UART RX ISR).
type Controller struct {
	mu sync.Mutex

	bridge board.Bridge
	clock  board.Clock
	hall   HallCounters
	sleep  func(time.Duration)

	gearRatio uint16

	status    Status
	direction Direction

	location       int32
	targetLocation int32

	maxCurtainLength  uint16
	fullCurtainLength uint16
	calibrating       bool

	defaultSpeed     uint16
	targetSpeed      uint16
	currPWM          uint8
	slowdownFactor   uint16
	minSlowdownSpeed uint16

	movementStartedAt          uint32
	endpointCalibrationStartAt uint32

	mailbox Mailbox
}

// New builds a Controller. location starts at cfg.MaxCurtainLength
// (assumed bottom) per the boot-time lifecycle in §3; callers that
// want auto-calibration should call SetCalibrating(true) and enqueue
// MotorUp immediately after construction (see cmd/fyrtur).
func New(cfg Config) *Controller {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Controller{
		bridge:            cfg.Bridge,
		clock:             cfg.Clock,
		sleep:             sleep,
		gearRatio:         cfg.GearRatio,
		status:            Stopped,
		direction:         None,
		location:          int32(cfg.MaxCurtainLength),
		targetLocation:    0,
		maxCurtainLength:  cfg.MaxCurtainLength,
		fullCurtainLength: cfg.FullCurtainLength,
		defaultSpeed:      cfg.DefaultSpeed,
		slowdownFactor:    cfg.SlowdownFactor,
		minSlowdownSpeed:  cfg.MinSlowdownSpeed,
	}
}

// SetHallCounters wires the quadrature decoder in after construction,
// avoiding an import cycle (the decoder needs a LocationSink, which
// the Controller satisfies).
func (c *Controller) SetHallCounters(hc HallCounters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hall = hc
}

func (c *Controller) Mailbox() *Mailbox { return &c.mailbox }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Direction() Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

func (c *Controller) Location() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// SetLocation overwrites location directly, bypassing ProcessLocation
// — used by the "set location" protocol command, which reseeds the
// tracked position without moving the motor.
func (c *Controller) SetLocation(v int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = v
}

func (c *Controller) TargetLocation() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetLocation
}

func (c *Controller) SetTargetLocation(v int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetLocation = v
}

func (c *Controller) Calibrating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calibrating
}

func (c *Controller) SetCalibrating(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calibrating = v
}

func (c *Controller) MaxCurtainLength() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxCurtainLength
}

func (c *Controller) SetMaxCurtainLength(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxCurtainLength = v
}

func (c *Controller) FullCurtainLength() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullCurtainLength
}

func (c *Controller) SetFullCurtainLength(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullCurtainLength = v
}

func (c *Controller) DefaultSpeed() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultSpeed
}

func (c *Controller) SetDefaultSpeed(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultSpeed = v
}

func (c *Controller) TargetSpeed() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetSpeed
}

// SetTargetSpeed mutates the live setpoint only; it does not persist
// and, per §4.6's 0x20 handler, also applies while moving.
func (c *Controller) SetTargetSpeed(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetSpeed = v
}

func (c *Controller) CurrPWM() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currPWM
}

func (c *Controller) SlowdownFactor() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slowdownFactor
}

func (c *Controller) SetSlowdownFactor(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slowdownFactor = v
}

func (c *Controller) MinSlowdownSpeed() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minSlowdownSpeed
}

func (c *Controller) SetMinSlowdownSpeed(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minSlowdownSpeed = v
}

func (c *Controller) GearRatio() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gearRatio
}

func (c *Controller) MovementStartedAt() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.movementStartedAt
}

func (c *Controller) EndpointCalibrationStartAt() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpointCalibrationStartAt
}

// PositionPercent is location_to_position100: 100*location/max,
// clamped to [0,100], forced to 50 while calibrating.
func (c *Controller) PositionPercent() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionPercentLocked()
}

func (c *Controller) positionPercentLocked() uint8 {
	if c.calibrating {
		return 50
	}
	if c.maxCurtainLength == 0 {
		return 0
	}
	pct := 100 * c.location / int32(c.maxCurtainLength)
	return uint8(clamp.Clamp(pct, int32(0), int32(100)))
}

// LocationFromPercent is position100_to_location: the inverse
// mapping used by the "go to %" opcode family to turn a requested
// percentage into a target location.
func (c *Controller) LocationFromPercent(pct uint8) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int32(pct) * int32(c.maxCurtainLength) / 100
}

// TicksForDegrees converts a rotor-angle in degrees to location
// ticks, used by the 17/90/6-degree override opcodes: DEG(d) =
// d/360 * GEAR_RATIO * 4 (four Hall-1 edges per motor revolution).
func (c *Controller) TicksForDegrees(deg int32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return deg * int32(c.gearRatio) * 4 / 360
}

// ProcessLocation is process_location(sensor_direction): called by
// the quadrature decoder on every counted Hall edge. It implements
// Controller's half of the quadrature.LocationSink contract.
func (c *Controller) ProcessLocation(dir Direction) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processLocationLocked(dir)
}

func (c *Controller) processLocationLocked(dir Direction) int {
	if c.calibrating {
		return 0
	}
	switch dir {
	case Up:
		c.location--
		if c.direction == Up && c.targetLocation != TargetLocationCalibrate && c.location-1 <= c.targetLocation {
			c.motorStopLocked()
			return 1
		}
	case Down:
		c.location++
		if c.direction == Down && c.location+1 >= c.targetLocation {
			c.motorStopLocked()
			return 1
		}
	}
	if c.direction != None {
		distance := abs32(c.targetLocation - c.location)
		threshold := int32(c.targetSpeed) * int32(c.slowdownFactor) / 8
		if c.slowdownFactor != 0 && distance < threshold {
			c.status = Stopping
			rawSpeed := float32(distance*8) / float32(c.slowdownFactor)
			newSpeed := int32(tinymath.Max(rawSpeed, float32(c.minSlowdownSpeed)))
			if uint16(newSpeed) < c.targetSpeed {
				c.targetSpeed = uint16(newSpeed)
			}
		}
	}
	return 0
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
