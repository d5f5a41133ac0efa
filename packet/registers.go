package packet

import (
	"errors"
	"math"
)

// WordOrder selects which of a scalar's constituent 16-bit registers is
// least significant, per spec §4.2. Two consecutive registers (or four, for
// 64-bit scalars) are treated as a little-endian sequence of words by
// default; HighWordFirst reverses that sequence before composing the value.
type WordOrder uint8

const (
	// LowWordFirst is the default: registers[0] holds the least significant word.
	LowWordFirst WordOrder = iota
	// HighWordFirst reverses the register sequence before composing the value.
	HighWordFirst
)

// ErrWrongRegisterCount is returned when a converter does not receive the
// exact number of registers its scalar width requires.
var ErrWrongRegisterCount = errors.New("wrong number of registers for requested conversion")

func wordsLSBFirst(regs []uint16, order WordOrder) []uint16 {
	if order == LowWordFirst {
		return regs
	}
	out := make([]uint16, len(regs))
	for i, r := range regs {
		out[len(regs)-1-i] = r
	}
	return out
}

func registersFromWordsLSBFirst(words []uint16, order WordOrder) []uint16 {
	return wordsLSBFirst(words, order) // the swap is its own inverse
}

func composeUint32(regs []uint16, order WordOrder) (uint32, error) {
	if len(regs) != 2 {
		return 0, ErrWrongRegisterCount
	}
	w := wordsLSBFirst(regs, order)
	return uint32(w[0]) | uint32(w[1])<<16, nil
}

func decomposeUint32(v uint32, order WordOrder) []uint16 {
	words := []uint16{uint16(v), uint16(v >> 16)}
	return registersFromWordsLSBFirst(words, order)
}

func composeUint64(regs []uint16, order WordOrder) (uint64, error) {
	if len(regs) != 4 {
		return 0, ErrWrongRegisterCount
	}
	w := wordsLSBFirst(regs, order)
	var v uint64
	for i, word := range w {
		v |= uint64(word) << (16 * i)
	}
	return v, nil
}

func decomposeUint64(v uint64, order WordOrder) []uint16 {
	words := make([]uint16, 4)
	for i := range words {
		words[i] = uint16(v >> (16 * i))
	}
	return registersFromWordsLSBFirst(words, order)
}

// Uint32FromRegisters composes a uint32 from exactly 2 registers.
func Uint32FromRegisters(regs []uint16, order WordOrder) (uint32, error) {
	return composeUint32(regs, order)
}

// Uint32ToRegisters decomposes a uint32 into exactly 2 registers.
func Uint32ToRegisters(v uint32, order WordOrder) []uint16 {
	return decomposeUint32(v, order)
}

// Int32FromRegisters composes an int32 from exactly 2 registers.
func Int32FromRegisters(regs []uint16, order WordOrder) (int32, error) {
	v, err := composeUint32(regs, order)
	return int32(v), err
}

// Int32ToRegisters decomposes an int32 into exactly 2 registers.
func Int32ToRegisters(v int32, order WordOrder) []uint16 {
	return decomposeUint32(uint32(v), order)
}

// Float32FromRegisters composes an IEEE-754 float32 from exactly 2 registers.
func Float32FromRegisters(regs []uint16, order WordOrder) (float32, error) {
	v, err := composeUint32(regs, order)
	return math.Float32frombits(v), err
}

// Float32ToRegisters decomposes an IEEE-754 float32 into exactly 2 registers.
func Float32ToRegisters(v float32, order WordOrder) []uint16 {
	return decomposeUint32(math.Float32bits(v), order)
}

// Uint64FromRegisters composes a uint64 from exactly 4 registers.
func Uint64FromRegisters(regs []uint16, order WordOrder) (uint64, error) {
	return composeUint64(regs, order)
}

// Uint64ToRegisters decomposes a uint64 into exactly 4 registers.
func Uint64ToRegisters(v uint64, order WordOrder) []uint16 {
	return decomposeUint64(v, order)
}

// Int64FromRegisters composes an int64 from exactly 4 registers.
func Int64FromRegisters(regs []uint16, order WordOrder) (int64, error) {
	v, err := composeUint64(regs, order)
	return int64(v), err
}

// Int64ToRegisters decomposes an int64 into exactly 4 registers.
func Int64ToRegisters(v int64, order WordOrder) []uint16 {
	return decomposeUint64(uint64(v), order)
}

// Float64FromRegisters composes an IEEE-754 float64 from exactly 4 registers.
func Float64FromRegisters(regs []uint16, order WordOrder) (float64, error) {
	v, err := composeUint64(regs, order)
	return math.Float64frombits(v), err
}

// Float64ToRegisters decomposes an IEEE-754 float64 into exactly 4 registers.
func Float64ToRegisters(v float64, order WordOrder) []uint16 {
	return decomposeUint64(math.Float64bits(v), order)
}

// StringFromRegisters packs registers back to ASCII text: two bytes per
// register, low byte at the low address (spec §4.2), truncated to length
// bytes.
func StringFromRegisters(regs []uint16, length int) string {
	data := make([]byte, 0, 2*len(regs))
	for _, r := range regs {
		data = append(data, byte(r), byte(r>>8))
	}
	if length < len(data) {
		data = data[:length]
	}
	return string(data)
}

// StringToRegisters packs an ASCII string into registers, two bytes per
// register with the low byte at the low address. An odd-length string is
// padded with a trailing zero byte.
func StringToRegisters(s string) []uint16 {
	n := (len(s) + 1) / 2
	regs := make([]uint16, n)
	for i := 0; i < n; i++ {
		lo := byte(0)
		hi := byte(0)
		if i*2 < len(s) {
			lo = s[i*2]
		}
		if i*2+1 < len(s) {
			hi = s[i*2+1]
		}
		regs[i] = uint16(lo) | uint16(hi)<<8
	}
	return regs
}
