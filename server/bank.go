package server

import "sync"

// bitBank backs the coil and discrete-input register spaces: one bool per
// addressable bit, guarded by its own lock (spec §5 "per-bank locks").
type bitBank struct {
	mu   sync.Mutex
	bits []bool
}

// newBitBank allocates a bank covering addresses [0, size).
func newBitBank(size int) *bitBank {
	return &bitBank{bits: make([]bool, size)}
}

// Lock and Unlock let the dispatcher hold the bank lock across a compound
// read-modify-write (FC15) or a read paired with a later notification.
func (b *bitBank) Lock()   { b.mu.Lock() }
func (b *bitBank) Unlock() { b.mu.Unlock() }

// Get reads count bits starting at address under the bank lock.
func (b *bitBank) Get(address, count uint16) []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(address, count)
}

// get is the unlocked indexed accessor (spec §5): callers already holding
// the lock use this to avoid re-entrant locking.
func (b *bitBank) get(address, count uint16) []bool {
	out := make([]bool, count)
	copy(out, b.bits[address:int(address)+int(count)])
	return out
}

// Set writes values starting at address under the bank lock.
func (b *bitBank) Set(address uint16, values []bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(address, values)
}

func (b *bitBank) set(address uint16, values []bool) {
	copy(b.bits[address:int(address)+len(values)], values)
}

func (b *bitBank) len() int { return len(b.bits) }

// registerBank backs the holding and input register spaces: one int16 per
// addressable 16-bit register, guarded by its own lock.
type registerBank struct {
	mu   sync.Mutex
	regs []int16
}

func newRegisterBank(size int) *registerBank {
	return &registerBank{regs: make([]int16, size)}
}

func (r *registerBank) Lock()   { r.mu.Lock() }
func (r *registerBank) Unlock() { r.mu.Unlock() }

func (r *registerBank) Get(address, count uint16) []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(address, count)
}

func (r *registerBank) get(address, count uint16) []int16 {
	out := make([]int16, count)
	copy(out, r.regs[address:int(address)+int(count)])
	return out
}

func (r *registerBank) Set(address uint16, values []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(address, values)
}

func (r *registerBank) set(address uint16, values []int16) {
	copy(r.regs[address:int(address)+len(values)], values)
}

func (r *registerBank) len() int { return len(r.regs) }

// Banks holds the four independent register spaces a dispatcher mutates:
// coils and discrete inputs (bit-addressed), holding and input registers
// (word-addressed). Discrete inputs and input registers are read-only from
// the master's perspective but remain directly settable here so a host
// application can simulate field devices changing them.
type Banks struct {
	Coils            *bitBank
	DiscreteInputs   *bitBank
	HoldingRegisters *registerBank
	InputRegisters   *registerBank
}

// NewBanks allocates all four banks with the given address-space sizes.
func NewBanks(coils, discreteInputs, holdingRegisters, inputRegisters int) *Banks {
	return &Banks{
		Coils:            newBitBank(coils),
		DiscreteInputs:   newBitBank(discreteInputs),
		HoldingRegisters: newRegisterBank(holdingRegisters),
		InputRegisters:   newRegisterBank(inputRegisters),
	}
}
