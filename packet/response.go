package packet

import (
	"encoding/binary"
	"fmt"
)

// ParseReadBitsResponse decodes the FC1/FC2 response PDU into exactly
// quantity bools, LSB-first within each byte, in ascending address order.
func ParseReadBitsResponse(pdu []byte, quantity int) ([]bool, error) {
	_, data, err := DecodeDataResponsePDU(pdu)
	if err != nil {
		return nil, err
	}
	wantBytes := (quantity + 7) / 8
	if len(data) != wantBytes {
		return nil, fmt.Errorf("bit response has %d data bytes, expected %d for quantity %d", len(data), wantBytes, quantity)
	}
	return UnpackBits(data, quantity), nil
}

// ParseReadRegistersResponse decodes the FC3/FC4/FC23 response PDU into
// signed 16-bit registers: the wire's big-endian word is reinterpreted as
// the host's int16, negative register values are permitted (spec §4.4).
func ParseReadRegistersResponse(pdu []byte) ([]int16, error) {
	_, data, err := DecodeDataResponsePDU(pdu)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("register response has odd byte length %d", len(data))
	}
	regs := make([]int16, len(data)/2)
	for i := range regs {
		regs[i] = int16(binary.BigEndian.Uint16(data[i*2 : i*2+2]))
	}
	return regs, nil
}

// ParseWriteSingleResponse decodes the echoed FC5/FC6 response PDU.
func ParseWriteSingleResponse(pdu []byte) (address uint16, value uint16, err error) {
	_, address, value, err = DecodeAddrValuePDU(pdu)
	return address, value, err
}

// ParseWriteMultipleResponse decodes the FC15/FC16 response PDU.
func ParseWriteMultipleResponse(pdu []byte) (address uint16, quantity uint16, err error) {
	_, address, quantity, err = DecodeAddrQtyPDU(pdu)
	return address, quantity, err
}
