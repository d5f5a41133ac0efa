package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestADU_TCPBytes(t *testing.T) {
	a := ADU{
		TransactionID: 1,
		UnitID:        0x11,
		PDU:           []byte{FunctionReadHoldingRegisters, 0x00, 0x6B, 0x00, 0x03},
	}

	expected := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	assert.Equal(t, expected, a.TCPBytes())
}

func TestADU_RTUBytes(t *testing.T) {
	a := ADU{
		UnitID: 0x11,
		PDU:    []byte{FunctionWriteSingleCoil, 0x00, 0xAC, 0xFF, 0x00},
	}

	expected := []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x00, 0x4E, 0x8B}
	assert.Equal(t, expected, a.RTUBytes())
}

func TestBuildADU_sliceForEachTransport(t *testing.T) {
	buf := buildADU(1, 0x11, []byte{FunctionReadHoldingRegisters, 0x00, 0x6B, 0x00, 0x03})
	n := len(buf)

	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}, buf[:n-2])
	assert.Equal(t, []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03, 0x76, 0x87}, buf[6:])
}

func TestLooksLikeModbusTCP(t *testing.T) {
	complete := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}

	var testCases = []struct {
		name        string
		data        []byte
		expectedLen int
		expectedErr error
	}{
		{name: "complete frame", data: complete, expectedLen: 12},
		{name: "too short to decide", data: complete[:5], expectedErr: ErrTCPDataTooShort},
		{name: "non-zero protocol id", data: []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x06, 0x11, 0x03}, expectedErr: ErrIsNotTCPPacket},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := LooksLikeModbusTCP(tc.data)
			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedLen, n)
		})
	}
}

func TestParseTCPADU(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}

	a, err := ParseTCPADU(data)

	require.NoError(t, err)
	assert.Equal(t, ADU{
		TransactionID: 1,
		UnitID:        0x11,
		PDU:           []byte{0x03, 0x00, 0x6B, 0x00, 0x03},
	}, a)
}

func TestParseTCPADU_truncated(t *testing.T) {
	_, err := ParseTCPADU([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03})

	assert.ErrorIs(t, err, ErrIsNotTCPPacket)
}

func TestParseRTUADU(t *testing.T) {
	data := []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x00, 0x4E, 0x8B}

	a, err := ParseRTUADU(data)

	require.NoError(t, err)
	assert.Equal(t, ADU{
		UnitID: 0x11,
		PDU:    []byte{0x05, 0x00, 0xAC, 0xFF, 0x00},
	}, a)
}

func TestParseRTUADU_badCRC(t *testing.T) {
	data := []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x00, 0x00, 0x00}

	_, err := ParseRTUADU(data)

	assert.ErrorIs(t, err, ErrInvalidCRC)
}
