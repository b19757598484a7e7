package board

import "sync"

// SimBridge is an in-memory Bridge used by host-side tests and the
// bench console. It records every register write so tests can assert
// the invariants in spec.md §8 directly (both compare registers zero
// and both high gates low after a stop, etc.).
type SimBridge struct {
	mu sync.Mutex

	high    [2]bool
	running [2]bool
	duty    [2]uint8
}

func NewSimBridge() *SimBridge {
	return &SimBridge{}
}

func (b *SimBridge) SetHigh(side Side, asserted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.high[side] = asserted
	return nil
}

func (b *SimBridge) PWMStart(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running[ch] = true
	return nil
}

func (b *SimBridge) PWMStop(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running[ch] = false
	b.duty[ch] = 0
	return nil
}

func (b *SimBridge) PWMSetDuty(ch Channel, duty uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duty[ch] = duty
	return nil
}

func (b *SimBridge) High(side Side) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.high[side]
}

func (b *SimBridge) Running(ch Channel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running[ch]
}

func (b *SimBridge) Duty(ch Channel) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duty[ch]
}

// SimClock is a manually-advanced Clock for deterministic tests.
type SimClock struct {
	mu  sync.Mutex
	now uint32
}

func NewSimClock() *SimClock {
	return &SimClock{}
}

func (c *SimClock) NowMillis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimClock) Advance(ms uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
}

func (c *SimClock) Set(ms uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

// SimAnalog is a settable AnalogInputs used to exercise the
// low-voltage and motor-current reply paths in tests.
type SimAnalog struct {
	mu      sync.Mutex
	voltage uint16
	current uint8
}

func NewSimAnalog(voltage uint16, current uint8) *SimAnalog {
	return &SimAnalog{voltage: voltage, current: current}
}

func (a *SimAnalog) Voltage() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voltage
}

func (a *SimAnalog) MotorCurrent() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *SimAnalog) SetVoltage(v uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.voltage = v
}

// SimNVM is an in-memory NVM. Slots start absent (ok=false) until
// first Store, modeling a blank factory part.
type SimNVM struct {
	mu     sync.Mutex
	values map[uint16]uint16
}

func NewSimNVM() *SimNVM {
	return &SimNVM{values: make(map[uint16]uint16)}
}

func (n *SimNVM) Load(slot uint16) (uint16, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.values[slot]
	return v, ok
}

func (n *SimNVM) Store(slot uint16, value uint16) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[slot] = value
}
