//go:build tinygo

package board

import (
	"time"

	"machine"
)

// MachineBridge drives the real H-bridge: two GPIO pins for the
// high-side gate drivers, and a PWM peripheral with two channels for
// the low-side gates, mirroring the narrow four-method seam the
// motion controller expects.
type MachineBridge struct {
	high1, high2 machine.Pin
	pwm          machine.PWM
	ch1, ch2     uint8
}

// NewMachineBridge configures the bridge pins as outputs and starts
// the PWM peripheral, following the pin-setup pattern in
// examples/sharpmem/main.go.
func NewMachineBridge(high1, high2 machine.Pin, pwm machine.PWM, pwmPin1, pwmPin2 machine.Pin) (*MachineBridge, error) {
	high1.Configure(machine.PinConfig{Mode: machine.PinOutput})
	high2.Configure(machine.PinConfig{Mode: machine.PinOutput})

	if err := pwm.Configure(machine.PWMConfig{}); err != nil {
		return nil, err
	}
	ch1, err := pwm.Channel(pwmPin1)
	if err != nil {
		return nil, err
	}
	ch2, err := pwm.Channel(pwmPin2)
	if err != nil {
		return nil, err
	}

	return &MachineBridge{
		high1: high1,
		high2: high2,
		pwm:   pwm,
		ch1:   ch1,
		ch2:   ch2,
	}, nil
}

func (b *MachineBridge) SetHigh(side Side, asserted bool) error {
	switch side {
	case HighSide1:
		b.high1.Set(asserted)
	case HighSide2:
		b.high2.Set(asserted)
	}
	return nil
}

func (b *MachineBridge) channel(ch Channel) uint8 {
	if ch == ChannelLow2 {
		return b.ch2
	}
	return b.ch1
}

func (b *MachineBridge) PWMStart(ch Channel) error {
	return b.pwm.Set(b.channel(ch), b.pwm.Top()/2)
}

func (b *MachineBridge) PWMStop(ch Channel) error {
	return b.pwm.Set(b.channel(ch), 0)
}

// PWMSetDuty maps an 8-bit (0-254) duty, the register width named in
// the spec, onto the peripheral's native PWM.Top() resolution.
func (b *MachineBridge) PWMSetDuty(ch Channel, duty uint8) error {
	scaled := uint32(duty) * b.pwm.Top() / 254
	return b.pwm.Set(b.channel(ch), scaled)
}

// MachineAnalog reads the supply-voltage and motor-current ADC
// channels. MotorCurrent always reads 0 when current is nil,
// modeling the slim build's omission of current sensing.
type MachineAnalog struct {
	voltage machine.ADC
	current *machine.ADC
}

func NewMachineAnalog(voltage machine.ADC, current *machine.ADC) *MachineAnalog {
	return &MachineAnalog{voltage: voltage, current: current}
}

func (a *MachineAnalog) Voltage() uint16 {
	return a.voltage.Get()
}

func (a *MachineAnalog) MotorCurrent() uint8 {
	if a.current == nil {
		return 0
	}
	return uint8(a.current.Get() >> 8)
}

// nvmSlotCount bounds the linear scan MachineNVM does over flash; the
// five settings slots the board persists fit comfortably under it.
const nvmSlotCount = 16

// MachineNVM persists the five settings slots in the last flash sector,
// each record a (slot, value) uint16 pair. Flash can only be erased a
// whole sector at a time, so Store erases and rewrites every record on
// every write; callers (internal/settings) already gate writes behind
// a motor_stopped/value-changed check to keep this off the hot path.
type MachineNVM struct {
	flash machine.Flash
	base  int64
}

// NewMachineNVM reserves one flash sector at base for settings storage.
func NewMachineNVM(base int64) *MachineNVM {
	return &MachineNVM{flash: machine.Flash, base: base}
}

func (n *MachineNVM) Load(slot uint16) (uint16, bool) {
	var rec [4]byte
	for i := 0; i < nvmSlotCount; i++ {
		off := n.base + int64(i*4)
		if _, err := n.flash.ReadAt(rec[:], off); err != nil {
			return 0, false
		}
		if rec[0] == 0xFF && rec[1] == 0xFF {
			break // first blank record: end of written slots
		}
		if be16(rec[0], rec[1]) == slot {
			return be16(rec[2], rec[3]), true
		}
	}
	return 0, false
}

func (n *MachineNVM) Store(slot uint16, value uint16) {
	records := make(map[uint16]uint16, nvmSlotCount)
	records[slot] = value

	var rec [4]byte
	for i := 0; i < nvmSlotCount; i++ {
		off := n.base + int64(i*4)
		if _, err := n.flash.ReadAt(rec[:], off); err != nil {
			break
		}
		if rec[0] == 0xFF && rec[1] == 0xFF {
			break
		}
		if s := be16(rec[0], rec[1]); s != slot {
			records[s] = be16(rec[2], rec[3])
		}
	}

	sectorSize := n.flash.EraseBlockSize()
	_ = n.flash.EraseBlocks(n.base/sectorSize, 1)

	i := 0
	for s, v := range records {
		off := n.base + int64(i*4)
		buf := [4]byte{byte(s >> 8), byte(s), byte(v >> 8), byte(v)}
		_, _ = n.flash.WriteAt(buf[:], off)
		i++
	}
}

func be16(hi, lo byte) uint16 { return uint16(hi)<<8 | uint16(lo) }

// MachineClock wraps the runtime's monotonic clock, taking boot as
// the zero point (now_ms() only needs to be internally consistent,
// never wall-clock accurate).
type MachineClock struct {
	boot time.Time
}

func NewMachineClock() *MachineClock {
	return &MachineClock{boot: time.Now()}
}

func (c *MachineClock) NowMillis() uint32 {
	return uint32(time.Since(c.boot).Milliseconds())
}
