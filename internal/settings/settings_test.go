package settings_test

import (
	"testing"

	"github.com/faern/fyrtur-motor-board/internal/board"
	"github.com/faern/fyrtur-motor-board/internal/settings"
)

func TestLoadWritesDefaultsForBlankSlots(t *testing.T) {
	nvm := board.NewSimNVM()
	v := settings.Load(nvm)

	if v.FullCurtainLength != settings.DefaultFullCurtainLength {
		t.Fatalf("full length = %d, want default", v.FullCurtainLength)
	}
	if v.DefaultSpeed != settings.DefaultTargetSpeed {
		t.Fatalf("default speed = %d, want %d", v.DefaultSpeed, settings.DefaultTargetSpeed)
	}
	if !v.AutoCalibration {
		t.Fatalf("expected auto-calibration default to be true")
	}

	// Defaults must have been written back so a second Load is stable.
	again := settings.Load(nvm)
	if again != v {
		t.Fatalf("second Load() = %+v, want identical %+v", again, v)
	}
}

func TestPersistSkipsWriteWhenNotStopped(t *testing.T) {
	nvm := board.NewSimNVM()
	if settings.Persist(nvm, settings.SlotMaxCurtainLength, 500, false) {
		t.Fatalf("expected Persist to refuse writing while motor is not Stopped")
	}
	if _, ok := nvm.Load(uint16(settings.SlotMaxCurtainLength)); ok {
		t.Fatalf("expected slot to remain unwritten")
	}
}

func TestPersistSkipsWriteWhenValueUnchanged(t *testing.T) {
	nvm := board.NewSimNVM()
	nvm.Store(uint16(settings.SlotMaxCurtainLength), 500)

	if settings.Persist(nvm, settings.SlotMaxCurtainLength, 500, true) {
		t.Fatalf("expected Persist to skip an unchanged value (flash-wear reduction)")
	}
}

func TestPersistWritesChangedValueWhenStopped(t *testing.T) {
	nvm := board.NewSimNVM()
	nvm.Store(uint16(settings.SlotMaxCurtainLength), 500)

	if !settings.Persist(nvm, settings.SlotMaxCurtainLength, 600, true) {
		t.Fatalf("expected Persist to write a changed value while Stopped")
	}
	got, ok := nvm.Load(uint16(settings.SlotMaxCurtainLength))
	if !ok || got != 600 {
		t.Fatalf("slot = (%d, %v), want (600, true)", got, ok)
	}
}
