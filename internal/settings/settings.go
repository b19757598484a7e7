// Package settings loads and persists the five scalar parameters the
// board keeps across reboots: curtain limits, the low-voltage cutoff,
// the default RPM target, and the auto-calibration flag.
package settings

import "github.com/faern/fyrtur-motor-board/internal/board"

// Slot is one of the five virtual non-volatile addresses.
type Slot uint16

const (
	SlotMaxCurtainLength  Slot = 0x5555
	SlotFullCurtainLength Slot = 0x6666
	SlotMinimumVoltage    Slot = 0x7777
	SlotDefaultSpeed      Slot = 0x8888
	SlotAutoCalibration   Slot = 0x9999
)

// Defaults. DefaultTargetSpeed is named explicitly in the spec;
// DefaultFullCurtainLength, DefaultMinimumVoltage, DefaultSlowdownFactor
// and DefaultMinSlowdownSpeed are board-specific constants the spec
// leaves unspecified — chosen to match the values used in the
// worked slowdown-curve scenario.
const (
	DefaultFullCurtainLength = 1000
	DefaultMinimumVoltage    = 6
	DefaultTargetSpeed       = 18
	DefaultSlowdownFactor    = 8
	DefaultMinSlowdownSpeed  = 5
	DefaultAutoCalibration   = true
)

// Values is the in-memory form of the five persisted slots.
type Values struct {
	MaxCurtainLength  uint16
	FullCurtainLength uint16
	MinimumVoltage    uint16
	DefaultSpeed      uint16
	AutoCalibration   bool
}

// Load reads all five slots, writing and substituting the default for
// any slot that comes back absent (a blank or corrupt part).
func Load(nvm board.NVM) Values {
	autoCal := loadOrDefault(nvm, SlotAutoCalibration, boolToU16(DefaultAutoCalibration))
	return Values{
		MaxCurtainLength:  loadOrDefault(nvm, SlotMaxCurtainLength, DefaultFullCurtainLength),
		FullCurtainLength: loadOrDefault(nvm, SlotFullCurtainLength, DefaultFullCurtainLength),
		MinimumVoltage:    loadOrDefault(nvm, SlotMinimumVoltage, DefaultMinimumVoltage),
		DefaultSpeed:      loadOrDefault(nvm, SlotDefaultSpeed, DefaultTargetSpeed),
		AutoCalibration:   autoCal != 0,
	}
}

func loadOrDefault(nvm board.NVM, slot Slot, def uint16) uint16 {
	if v, ok := nvm.Load(uint16(slot)); ok {
		return v
	}
	nvm.Store(uint16(slot), def)
	return def
}

// Persist writes value to slot only when motorStopped is true and
// the stored value actually differs, matching motor_write_setting's
// two-part gate (reduces flash wear, and keeps settings writes out of
// the time-critical moving state). Returns whether a write happened.
func Persist(nvm board.NVM, slot Slot, value uint16, motorStopped bool) bool {
	if !motorStopped {
		return false
	}
	if cur, ok := nvm.Load(uint16(slot)); ok && cur == value {
		return false
	}
	nvm.Store(uint16(slot), value)
	return true
}

// PersistBool is Persist for the auto-calibration flag.
func PersistBool(nvm board.NVM, slot Slot, value bool, motorStopped bool) bool {
	return Persist(nvm, slot, boolToU16(value), motorStopped)
}

func boolToU16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
