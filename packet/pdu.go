package packet

import (
	"encoding/binary"
	"fmt"
)

// EncodeRegisters packs signed 16-bit registers into their big-endian wire
// bytes, two bytes per register, high byte first (spec §4.2).
func EncodeRegisters(values []int16) []byte {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[i*2:i*2+2], uint16(v))
	}
	return data
}

// This file holds the single set of PDU encode/decode primitives that every
// supported function code is built from (spec §9 "fold into a single
// transact(request_adu, expected_response_shape) -> bytes primitive; each FC
// becomes an encoder + a decoder"). Function-code-specific helpers in
// request.go/response.go are thin wrappers around these shapes.

// EncodeAddrQtyPDU builds the `fc, address(2), quantity(2)` shape used by the
// read requests (FC1/2/3/4) and by the write-multiple responses (FC15/16).
func EncodeAddrQtyPDU(fc uint8, address uint16, quantity uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = fc
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	return pdu
}

// DecodeAddrQtyPDU parses the `fc, address(2), quantity(2)` shape.
func DecodeAddrQtyPDU(pdu []byte) (fc uint8, address uint16, quantity uint16, err error) {
	if len(pdu) != 5 {
		return 0, 0, 0, fmt.Errorf("addr/qty pdu must be 5 bytes, got %d", len(pdu))
	}
	return pdu[0], binary.BigEndian.Uint16(pdu[1:3]), binary.BigEndian.Uint16(pdu[3:5]), nil
}

// EncodeDataResponsePDU builds the `fc, byteCount, data...` shape used by the
// read responses (FC1/2/3/4) and the read/write response (FC23).
func EncodeDataResponsePDU(fc uint8, data []byte) []byte {
	pdu := make([]byte, 2+len(data))
	pdu[0] = fc
	pdu[1] = uint8(len(data))
	copy(pdu[2:], data)
	return pdu
}

// DecodeDataResponsePDU parses the `fc, byteCount, data...` shape.
func DecodeDataResponsePDU(pdu []byte) (fc uint8, data []byte, err error) {
	if len(pdu) < 2 {
		return 0, nil, fmt.Errorf("data response pdu too short: %d bytes", len(pdu))
	}
	byteCount := int(pdu[1])
	if len(pdu) != 2+byteCount {
		return 0, nil, fmt.Errorf("data response byte count %d does not match pdu length %d", byteCount, len(pdu))
	}
	return pdu[0], pdu[2:], nil
}

// EncodeAddrValuePDU builds the `fc, address(2), value(2)` shape used by
// FC5/FC6 requests and their (identical) echoed responses.
func EncodeAddrValuePDU(fc uint8, address uint16, value uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = fc
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], value)
	return pdu
}

// DecodeAddrValuePDU parses the `fc, address(2), value(2)` shape.
func DecodeAddrValuePDU(pdu []byte) (fc uint8, address uint16, value uint16, err error) {
	if len(pdu) != 5 {
		return 0, 0, 0, fmt.Errorf("addr/value pdu must be 5 bytes, got %d", len(pdu))
	}
	return pdu[0], binary.BigEndian.Uint16(pdu[1:3]), binary.BigEndian.Uint16(pdu[3:5]), nil
}

// EncodeWriteMultiplePDU builds the `fc, address(2), quantity(2), byteCount, data...`
// request shape shared by FC15 (coils, data is packed bits) and FC16 (registers,
// data is packed big-endian register pairs).
func EncodeWriteMultiplePDU(fc uint8, address uint16, quantity uint16, data []byte) []byte {
	pdu := make([]byte, 6+len(data))
	pdu[0] = fc
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	pdu[5] = uint8(len(data))
	copy(pdu[6:], data)
	return pdu
}

// DecodeWriteMultiplePDU parses the FC15/FC16 request shape.
func DecodeWriteMultiplePDU(pdu []byte) (fc uint8, address uint16, quantity uint16, data []byte, err error) {
	if len(pdu) < 6 {
		return 0, 0, 0, nil, fmt.Errorf("write-multiple pdu too short: %d bytes", len(pdu))
	}
	byteCount := int(pdu[5])
	if len(pdu) != 6+byteCount {
		return 0, 0, 0, nil, fmt.Errorf("write-multiple byte count %d does not match pdu length %d", byteCount, len(pdu))
	}
	fc = pdu[0]
	address = binary.BigEndian.Uint16(pdu[1:3])
	quantity = binary.BigEndian.Uint16(pdu[3:5])
	return fc, address, quantity, pdu[6:], nil
}

// EncodeReadWriteMultiplePDU builds the FC23 request shape: read address/qty,
// write address/qty, write byte count, then the registers to write.
func EncodeReadWriteMultiplePDU(readAddress, readQuantity, writeAddress, writeQuantity uint16, writeData []byte) []byte {
	pdu := make([]byte, 10+len(writeData))
	pdu[0] = FunctionReadWriteMultipleRegisters
	binary.BigEndian.PutUint16(pdu[1:3], readAddress)
	binary.BigEndian.PutUint16(pdu[3:5], readQuantity)
	binary.BigEndian.PutUint16(pdu[5:7], writeAddress)
	binary.BigEndian.PutUint16(pdu[7:9], writeQuantity)
	pdu[9] = uint8(len(writeData))
	copy(pdu[10:], writeData)
	return pdu
}

// DecodeReadWriteMultiplePDU parses the FC23 request shape.
func DecodeReadWriteMultiplePDU(pdu []byte) (readAddress, readQuantity, writeAddress, writeQuantity uint16, writeData []byte, err error) {
	if len(pdu) < 10 {
		return 0, 0, 0, 0, nil, fmt.Errorf("read/write-multiple pdu too short: %d bytes", len(pdu))
	}
	byteCount := int(pdu[9])
	if len(pdu) != 10+byteCount {
		return 0, 0, 0, 0, nil, fmt.Errorf("read/write-multiple byte count %d does not match pdu length %d", byteCount, len(pdu))
	}
	readAddress = binary.BigEndian.Uint16(pdu[1:3])
	readQuantity = binary.BigEndian.Uint16(pdu[3:5])
	writeAddress = binary.BigEndian.Uint16(pdu[5:7])
	writeQuantity = binary.BigEndian.Uint16(pdu[7:9])
	return readAddress, readQuantity, writeAddress, writeQuantity, pdu[10:], nil
}
