package protocol

// Canonical 2-byte opcodes (cmd1:cmd2), matched exactly before the
// high-nibble parametric family is tried.
const (
	opUp              uint16 = 0x0ADD
	opDown            uint16 = 0x0AEE
	opUp17            uint16 = 0x0A0D
	opDown17          uint16 = 0x0A0E
	opStop            uint16 = 0x0ACC
	opOverrideUp90    uint16 = 0xFAD1
	opOverrideDown90  uint16 = 0xFAD2
	opOverrideUp6     uint16 = 0xFAD3
	opOverrideDown6   uint16 = 0xFAD4
	opSetMaxLength    uint16 = 0xFAEE
	opSetFullLength   uint16 = 0xFACC
	opResetLength     uint16 = 0xFA00
	opOverrideDown5Rv uint16 = 0xFADA
	opGetStatus       uint16 = 0xCCCC
	opGetVersion      uint16 = 0xCCDC
	opGetLocation     uint16 = 0xCCD0
	opGetStatusExt    uint16 = 0xCCDE
	opGetLimits       uint16 = 0xCCDF
	opDebug           uint16 = 0xCCD1
	opSensorDebug     uint16 = 0xCCD2
)

// opGoToPercent (CMD_GO_TO) is matched as an exact single-byte value
// against cmd1 rather than folded into the masked family below —
// the original dispatcher checks `cmd1 == 0xDD` directly, ahead of
// the `(cmd1 & 0xf0)` switch.
const opGoToPercent byte = 0xDD

// High-nibble prefixes for the masked parametric family. Low nibble
// of cmd1, concatenated with cmd2, form the 12-bit payload for the
// location-carrying members (prefixExtGoTo, prefixSetLocation,
// prefixGoToLocation); the scalar-setting members use cmd2 alone.
const (
	prefixExtGoTo            byte = 0x10
	prefixSetSpeed           byte = 0x20
	prefixSetDefaultSpeed    byte = 0x30
	prefixSetMinVoltage      byte = 0x40
	prefixSetLocation        byte = 0x50
	prefixSetAutoCal         byte = 0x60
	prefixGoToLocation       byte = 0x70
	prefixSetSlowdownFactor  byte = 0x80
	prefixSetMinSlowdownSpd  byte = 0x90
)

// Response codes for the byte-2 slot of a reply frame. Bound to
// motor.c's reply assignments: version 0xD0 (motor.c:665), location
// 0xD1 (motor.c:704), debug 0xD2 (motor.c:678), sensor-debug 0xD3
// (motor.c:692).
const (
	respStatus    byte = 0xD8
	respVersion   byte = 0xD0
	respLocation  byte = 0xD1
	respDebug     byte = 0xD2
	respSensorDbg byte = 0xD3
	respStatusExt byte = 0xDA
	respLimits    byte = 0xDB
)

// VersionMajor/VersionMinor are not defined anywhere in the retrieved
// source (only referenced by the get-version handler); chosen as the
// first release pair for this rendering.
const (
	VersionMajor byte = 1
	VersionMinor byte = 0
)
