package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32Registers_roundTrip(t *testing.T) {
	var testCases = []struct {
		name  string
		value uint32
		order WordOrder
	}{
		{name: "low word first", value: 0x12345678, order: LowWordFirst},
		{name: "high word first", value: 0x12345678, order: HighWordFirst},
		{name: "zero", value: 0, order: LowWordFirst},
		{name: "max", value: 0xFFFFFFFF, order: HighWordFirst},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			regs := Uint32ToRegisters(tc.value, tc.order)
			require.Len(t, regs, 2)

			got, err := Uint32FromRegisters(regs, tc.order)
			require.NoError(t, err)
			assert.Equal(t, tc.value, got)
		})
	}
}

func TestUint32FromRegisters_wordOrder(t *testing.T) {
	regs := []uint16{0x5678, 0x1234}

	low, err := Uint32FromRegisters(regs, LowWordFirst)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), low)

	high, err := Uint32FromRegisters(regs, HighWordFirst)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x56781234), high)
}

func TestUint32FromRegisters_wrongCount(t *testing.T) {
	_, err := Uint32FromRegisters([]uint16{1}, LowWordFirst)
	assert.ErrorIs(t, err, ErrWrongRegisterCount)
}

func TestInt32Registers_roundTrip(t *testing.T) {
	for _, order := range []WordOrder{LowWordFirst, HighWordFirst} {
		for _, v := range []int32{0, -1, 1, -2147483648, 2147483647} {
			regs := Int32ToRegisters(v, order)
			got, err := Int32FromRegisters(regs, order)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestFloat32Registers_roundTrip(t *testing.T) {
	for _, order := range []WordOrder{LowWordFirst, HighWordFirst} {
		for _, v := range []float32{0, -1.5, 3.14159, 1e10} {
			regs := Float32ToRegisters(v, order)
			got, err := Float32FromRegisters(regs, order)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestUint64Registers_roundTrip(t *testing.T) {
	for _, order := range []WordOrder{LowWordFirst, HighWordFirst} {
		for _, v := range []uint64{0, 1, 0x0123456789ABCDEF, ^uint64(0)} {
			regs := Uint64ToRegisters(v, order)
			require.Len(t, regs, 4)

			got, err := Uint64FromRegisters(regs, order)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestInt64Registers_roundTrip(t *testing.T) {
	for _, order := range []WordOrder{LowWordFirst, HighWordFirst} {
		for _, v := range []int64{0, -1, 1234567890123, -9223372036854775808} {
			regs := Int64ToRegisters(v, order)
			got, err := Int64FromRegisters(regs, order)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestFloat64Registers_roundTrip(t *testing.T) {
	for _, order := range []WordOrder{LowWordFirst, HighWordFirst} {
		for _, v := range []float64{0, -1.5, 3.14159265358979, 1e100} {
			regs := Float64ToRegisters(v, order)
			got, err := Float64FromRegisters(regs, order)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestUint64FromRegisters_wrongCount(t *testing.T) {
	_, err := Uint64FromRegisters([]uint16{1, 2, 3}, LowWordFirst)
	assert.ErrorIs(t, err, ErrWrongRegisterCount)
}

func TestStringRegisters_roundTrip(t *testing.T) {
	var testCases = []string{"HI", "modbus!!", "ab"}

	for _, s := range testCases {
		t.Run(s, func(t *testing.T) {
			regs := StringToRegisters(s)
			got := StringFromRegisters(regs, len(s))
			assert.Equal(t, s, got)
		})
	}
}

func TestStringToRegisters_oddLengthPadded(t *testing.T) {
	regs := StringToRegisters("abc")

	require.Len(t, regs, 2)
	assert.Equal(t, "abc", StringFromRegisters(regs, 3))
}

func TestStringFromRegisters_packsLowByteAtLowAddress(t *testing.T) {
	// register 0x6948 holds 'H' (0x48) at the low byte, 'i' (0x69) at the high byte.
	got := StringFromRegisters([]uint16{0x6948}, 2)
	assert.Equal(t, "Hi", got)
}
