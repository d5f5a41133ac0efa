package packet

import (
	"encoding/binary"
	"errors"
)

// Sentinel parse errors shared by the TCP and RTU framers.
var (
	// ErrTCPDataTooShort is returned when fewer bytes than a minimal Modbus TCP ADU have arrived so far.
	ErrTCPDataTooShort = errors.New("data is too short to be a Modbus TCP packet")
	// ErrIsNotTCPPacket is returned when received bytes do not look like a Modbus TCP ADU.
	ErrIsNotTCPPacket = errors.New("data does not look like a Modbus TCP packet")
	// ErrInvalidCRC is returned when an RTU ADU's trailing CRC does not match its recomputed value.
	ErrInvalidCRC = errors.New("CRC does not match Modbus RTU packet bytes")
	// ErrRTUDataTooShort is returned when fewer bytes than a minimal Modbus RTU ADU have arrived so far.
	ErrRTUDataTooShort = errors.New("data is too short to be a Modbus RTU packet")
)

// ADU is the transport-agnostic in-memory representation of a Modbus message:
// an (optional, TCP/UDP-only) transaction id, the unit identifier, and the PDU
// (function code + payload). It is built once and sliced differently per
// transport, per spec §4.3.
type ADU struct {
	TransactionID uint16 // meaningful for TCP/UDP only
	UnitID        uint8
	PDU           []byte // function code + function payload, no header/CRC
}

// TCPBytes renders the ADU as a Modbus TCP/UDP frame: the 7-byte MBAP header
// (transaction id, protocol id 0x0000, length) followed by the PDU. No CRC
// trailer is present on the wire for TCP/UDP.
func (a ADU) TCPBytes() []byte {
	pduLen := len(a.PDU)
	out := make([]byte, 7+pduLen)
	binary.BigEndian.PutUint16(out[0:2], a.TransactionID)
	binary.BigEndian.PutUint16(out[2:4], 0x0000)
	binary.BigEndian.PutUint16(out[4:6], uint16(1+pduLen))
	out[6] = a.UnitID
	copy(out[7:], a.PDU)
	return out
}

// RTUBytes renders the ADU as a Modbus RTU frame: unit id, PDU, then the
// 2-byte CRC (crc_lo first) computed over unit id through the end of the PDU.
func (a ADU) RTUBytes() []byte {
	pduLen := len(a.PDU)
	out := make([]byte, 1+pduLen+2)
	out[0] = a.UnitID
	copy(out[1:], a.PDU)
	crc := CRC16(out[:1+pduLen])
	out[1+pduLen] = uint8(crc)
	out[1+pduLen+1] = uint8(crc >> 8)
	return out
}

// buildADU assembles the shared buffer spec §4.3 describes: MBAP header,
// unit id, PDU, then a zeroed 2-byte CRC trailer, and fills the CRC by
// running CRC16 over the bytes from unit_id through the PDU end. Transports
// then slice the result: TCP/UDP take [0:adu_len-2], RTU takes [6:adu_len].
func buildADU(transactionID uint16, unitID uint8, pdu []byte) []byte {
	pduLen := len(pdu)
	buf := make([]byte, 7+pduLen+2)
	binary.BigEndian.PutUint16(buf[0:2], transactionID)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	binary.BigEndian.PutUint16(buf[4:6], uint16(1+pduLen))
	buf[6] = unitID
	copy(buf[7:], pdu)
	crc := CRC16(buf[6 : 7+pduLen])
	buf[7+pduLen] = uint8(crc)
	buf[7+pduLen+1] = uint8(crc >> 8)
	return buf
}

// LooksLikeModbusTCP inspects the start of data for a well-formed MBAP
// header and reports the total ADU length it announces. It returns
// ErrTCPDataTooShort while more bytes are still needed to decide.
func LooksLikeModbusTCP(data []byte) (aduLen int, err error) {
	if len(data) < 8 {
		return 0, ErrTCPDataTooShort
	}
	if data[2] != 0x00 || data[3] != 0x00 {
		return 0, ErrIsNotTCPPacket
	}
	pduLen := binary.BigEndian.Uint16(data[4:6])
	if pduLen < 2 {
		return 0, ErrIsNotTCPPacket
	}
	return int(pduLen) + 6, nil
}

// ParseTCPADU splits a complete Modbus TCP/UDP frame into an ADU.
func ParseTCPADU(data []byte) (ADU, error) {
	header, err := ParseMBAPHeader(data)
	if err != nil {
		return ADU{}, err
	}
	if len(data) != 6+int(header.Length) {
		return ADU{}, ErrIsNotTCPPacket
	}
	return ADU{
		TransactionID: header.TransactionID,
		UnitID:        header.UnitID,
		PDU:           data[7:],
	}, nil
}

// ParseRTUADU checks the CRC of a complete Modbus RTU frame and splits it
// into an ADU. Use DetectValidFrame first to decide a frame is complete.
func ParseRTUADU(data []byte) (ADU, error) {
	if len(data) < 4 {
		return ADU{}, ErrRTUDataTooShort
	}
	n := len(data)
	want := CRC16(data[:n-2])
	got := uint16(data[n-2]) | uint16(data[n-1])<<8
	if want != got {
		return ADU{}, ErrInvalidCRC
	}
	return ADU{
		UnitID: data[0],
		PDU:    data[1 : n-2],
	}, nil
}

// DetectValidFrame is the RTU frame-delimiter predicate of spec §4.7, used
// by both the master and the slave to decide when a pending buffer holds a
// complete frame: length >= 6, unit id in [1,247], and the trailing two
// bytes equal the CRC of everything before them (crc_lo then crc_hi).
func DetectValidFrame(buf []byte) bool {
	n := len(buf)
	if n < 6 {
		return false
	}
	if buf[0] < 1 || buf[0] > 247 {
		return false
	}
	want := CRC16(buf[:n-2])
	got := uint16(buf[n-2]) | uint16(buf[n-1])<<8
	return want == got
}
