package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(true, 2000))
	assert.Error(t, ValidateQuantity(true, 2001))
	assert.Error(t, ValidateQuantity(true, 0))
	assert.NoError(t, ValidateQuantity(false, 125))
	assert.Error(t, ValidateQuantity(false, 126))
}

func TestValidateAddressRange(t *testing.T) {
	assert.NoError(t, ValidateAddressRange(65533, 1))
	assert.Error(t, ValidateAddressRange(65535, 1))
}

func TestValidateSingleCoilValue(t *testing.T) {
	assert.NoError(t, ValidateSingleCoilValue(CoilOn))
	assert.NoError(t, ValidateSingleCoilValue(CoilOff))
	assert.Error(t, ValidateSingleCoilValue(0x1234))
}

func TestValidateReadWriteMultiple(t *testing.T) {
	assert.NoError(t, ValidateReadWriteMultiple(125, 121, 242))
	assert.Error(t, ValidateReadWriteMultiple(0, 121, 242))
	assert.Error(t, ValidateReadWriteMultiple(125, 122, 244))
	assert.Error(t, ValidateReadWriteMultiple(125, 121, 240))
}

func TestNewReadRequest(t *testing.T) {
	req, err := NewReadRequest(FunctionReadHoldingRegisters, 1, 0x11, 0x006B, 0x0003)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x00, 0x6B, 0x00, 0x03}, req.PDU)
	assert.Equal(t, 2+2*3, req.ExpectedResponsePDULen)

	_, err = NewReadRequest(FunctionReadHoldingRegisters, 1, 0x11, 0xFFFF, 2)
	assert.Error(t, err)
}

func TestNewReadRequest_bits(t *testing.T) {
	req, err := NewReadRequest(FunctionReadCoils, 1, 0x11, 0x0013, 10)

	require.NoError(t, err)
	assert.Equal(t, 2+2, req.ExpectedResponsePDULen)
}

func TestNewWriteSingleCoilRequest(t *testing.T) {
	req, err := NewWriteSingleCoilRequest(1, 0x11, 0x00AC, true)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00, 0xAC, 0xFF, 0x00}, req.PDU)
	assert.Equal(t, 5, req.ExpectedResponsePDULen)
}

func TestNewWriteSingleRegisterRequest(t *testing.T) {
	req, err := NewWriteSingleRegisterRequest(1, 0x11, 0x0001, 3)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x00, 0x01, 0x00, 0x03}, req.PDU)
}

func TestNewWriteMultipleCoilsRequest(t *testing.T) {
	req, err := NewWriteMultipleCoilsRequest(1, 0x11, 0x0013, []bool{
		true, false, true, true, false, false, true, true, true, false,
	})

	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}, req.PDU)
}

func TestNewWriteMultipleRegistersRequest(t *testing.T) {
	req, err := NewWriteMultipleRegistersRequest(1, 0x11, 0x0001, []int16{0x000A, 0x0102})

	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}, req.PDU)
}

func TestNewReadWriteMultipleRegistersRequest(t *testing.T) {
	req, err := NewReadWriteMultipleRegistersRequest(1, 0x11, 0x0003, 0x0006, 0x000E, []int16{0x00FF, 0x00FF, 0x00FF})

	require.NoError(t, err)
	assert.Equal(t, uint8(FunctionReadWriteMultipleRegisters), req.PDU[0])
	assert.Equal(t, 2+2*6, req.ExpectedResponsePDULen)
}
