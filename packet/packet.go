// Package packet implements the Modbus Application Data Unit (ADU) codec:
// MBAP/RTU framing, CRC-16, the per-function-code PDU shapes of the Modbus
// Application Protocol v1.1b3, and exception responses.
package packet

import "encoding/binary"

// Function codes supported by this stack. Diagnostics, file record,
// encapsulated-interface and user-defined function codes are out of scope.
const (
	FunctionReadCoils                  = uint8(1)  // 0x01
	FunctionReadDiscreteInputs         = uint8(2)  // 0x02
	FunctionReadHoldingRegisters       = uint8(3)  // 0x03
	FunctionReadInputRegisters         = uint8(4)  // 0x04
	FunctionWriteSingleCoil            = uint8(5)  // 0x05
	FunctionWriteSingleRegister        = uint8(6)  // 0x06
	FunctionWriteMultipleCoils         = uint8(15) // 0x0f
	FunctionWriteMultipleRegisters     = uint8(16) // 0x10
	FunctionReadWriteMultipleRegisters = uint8(23) // 0x17

	functionCodeErrorBitmask = uint8(0x80)
)

// Quantity limits enforced at encode time (master) and validated again at
// decode/dispatch time (slave), per spec §4.3.
const (
	MaxCoilsPerRequest     = uint16(2000)
	MaxRegistersPerRequest = uint16(125)
	MaxReadWriteReadQty    = uint16(125)
	MaxReadWriteWriteQty   = uint16(121)
)

// CoilOn and CoilOff are the only two legal wire values for FC5's request value field.
const (
	CoilOn  = uint16(0xFF00)
	CoilOff = uint16(0x0000)
)

// SupportedFunctionCodes lists the function codes this stack encodes, decodes and dispatches.
var SupportedFunctionCodes = [9]uint8{
	FunctionReadCoils,
	FunctionReadDiscreteInputs,
	FunctionReadHoldingRegisters,
	FunctionReadInputRegisters,
	FunctionWriteSingleCoil,
	FunctionWriteSingleRegister,
	FunctionWriteMultipleCoils,
	FunctionWriteMultipleRegisters,
	FunctionReadWriteMultipleRegisters,
}

// IsErrorFunctionCode reports whether fc has the Modbus exception bit (0x80) set.
func IsErrorFunctionCode(fc uint8) bool {
	return fc&functionCodeErrorBitmask != 0
}

// MBAPHeader is the 7-byte Modbus Application Protocol envelope used by TCP and UDP.
// ProtocolID is always 0x0000; Length counts bytes from (and including) UnitID to
// the end of the PDU.
type MBAPHeader struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

// ParseMBAPHeader parses the first 7 bytes of data as an MBAP header.
func ParseMBAPHeader(data []byte) (MBAPHeader, error) {
	if len(data) < 7 {
		return MBAPHeader{}, ErrTCPDataTooShort
	}
	protocolID := binary.BigEndian.Uint16(data[2:4])
	if protocolID != 0 {
		return MBAPHeader{}, ErrIsNotTCPPacket
	}
	length := binary.BigEndian.Uint16(data[4:6])
	if length == 0 {
		return MBAPHeader{}, ErrIsNotTCPPacket
	}
	return MBAPHeader{
		TransactionID: binary.BigEndian.Uint16(data[0:2]),
		ProtocolID:    protocolID,
		Length:        length,
		UnitID:        data[6],
	}, nil
}

// PackBits packs a slice of bools into Modbus wire bit format: LSB-first within
// each byte, ascending address order (spec §4.4 "Response decoding").
func PackBits(bits []bool) []byte {
	byteLen := (len(bits) + 7) / 8
	out := make([]byte, byteLen)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits unpacks qty LSB-first bits from data in ascending address order.
func UnpackBits(data []byte, qty int) []bool {
	out := make([]bool, qty)
	for i := 0; i < qty; i++ {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}
