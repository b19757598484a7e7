package motion

import "sync/atomic"

// Command is the deferred-command mailbox's payload: it is written
// from the UART RX context (and once by the boot sequence) and drained
// once per main-loop pass. NoCommand is the zero value so a fresh Mailbox
// starts empty.
type Command uint32

const (
	NoCommand Command = iota
	MotorUp
	MotorDown
	Stop
)

// Mailbox is a one-slot atomic exchange: only the most recent
// deferred command matters, so there is no queue to overflow.
type Mailbox struct {
	slot atomic.Uint32
}

// Enqueue overwrites whatever command, if any, is waiting to run.
func (m *Mailbox) Enqueue(cmd Command) {
	m.slot.Store(uint32(cmd))
}

// Drain atomically reads and clears the pending command.
func (m *Mailbox) Drain() Command {
	return Command(m.slot.Swap(uint32(NoCommand)))
}
