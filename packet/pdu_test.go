package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeAddrQtyPDU(t *testing.T) {
	pdu := EncodeAddrQtyPDU(FunctionReadHoldingRegisters, 0x006B, 0x0003)
	assert.Equal(t, []byte{0x03, 0x00, 0x6B, 0x00, 0x03}, pdu)

	fc, address, quantity, err := DecodeAddrQtyPDU(pdu)
	require.NoError(t, err)
	assert.Equal(t, FunctionReadHoldingRegisters, fc)
	assert.Equal(t, uint16(0x006B), address)
	assert.Equal(t, uint16(0x0003), quantity)

	_, _, _, err = DecodeAddrQtyPDU(pdu[:3])
	assert.Error(t, err)
}

func TestEncodeDecodeDataResponsePDU(t *testing.T) {
	pdu := EncodeDataResponsePDU(FunctionReadHoldingRegisters, []byte{0x02, 0x2B, 0x00, 0x00})
	assert.Equal(t, []byte{0x03, 0x04, 0x02, 0x2B, 0x00, 0x00}, pdu)

	fc, data, err := DecodeDataResponsePDU(pdu)
	require.NoError(t, err)
	assert.Equal(t, FunctionReadHoldingRegisters, fc)
	assert.Equal(t, []byte{0x02, 0x2B, 0x00, 0x00}, data)

	_, _, err = DecodeDataResponsePDU([]byte{0x03, 0x05, 0x00})
	assert.Error(t, err)
}

func TestEncodeDecodeAddrValuePDU(t *testing.T) {
	pdu := EncodeAddrValuePDU(FunctionWriteSingleCoil, 0x00AC, CoilOn)
	assert.Equal(t, []byte{0x05, 0x00, 0xAC, 0xFF, 0x00}, pdu)

	fc, address, value, err := DecodeAddrValuePDU(pdu)
	require.NoError(t, err)
	assert.Equal(t, FunctionWriteSingleCoil, fc)
	assert.Equal(t, uint16(0x00AC), address)
	assert.Equal(t, CoilOn, value)
}

func TestEncodeDecodeWriteMultiplePDU(t *testing.T) {
	pdu := EncodeWriteMultiplePDU(FunctionWriteMultipleCoils, 0x0013, 0x000A, []byte{0xCD, 0x01})
	assert.Equal(t, []byte{0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}, pdu)

	fc, address, quantity, data, err := DecodeWriteMultiplePDU(pdu)
	require.NoError(t, err)
	assert.Equal(t, FunctionWriteMultipleCoils, fc)
	assert.Equal(t, uint16(0x0013), address)
	assert.Equal(t, uint16(0x000A), quantity)
	assert.Equal(t, []byte{0xCD, 0x01}, data)

	_, _, _, _, err = DecodeWriteMultiplePDU(pdu[:6])
	assert.Error(t, err)
}

func TestEncodeDecodeReadWriteMultiplePDU(t *testing.T) {
	pdu := EncodeReadWriteMultiplePDU(0x0003, 0x0006, 0x000E, 0x0003, []byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF})
	require.Len(t, pdu, 16)

	readAddress, readQuantity, writeAddress, writeQuantity, writeData, err := DecodeReadWriteMultiplePDU(pdu)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0003), readAddress)
	assert.Equal(t, uint16(0x0006), readQuantity)
	assert.Equal(t, uint16(0x000E), writeAddress)
	assert.Equal(t, uint16(0x0003), writeQuantity)
	assert.Equal(t, []byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF}, writeData)
}
