package server

import (
	"bytes"
	"context"

	"github.com/elsen-labs/modbus/packet"
)

// ModbusTCPAssembler buffers bytes read from one TCP connection until a
// complete Modbus TCP ADU is present, then hands it to Handler.
type ModbusTCPAssembler struct {
	Handler  ModbusHandler
	received bytes.Buffer
}

// ReceiveRead implements PacketAssembler.
func (a *ModbusTCPAssembler) ReceiveRead(ctx context.Context, received []byte, bytesRead int) (response []byte, closeConnection bool) {
	a.received.Write(received)

	aduLen, err := packet.LooksLikeModbusTCP(a.received.Bytes())
	if err == packet.ErrTCPDataTooShort {
		return nil, false // wait for more data to arrive
	} else if err != nil {
		a.received.Reset() // desynced stream, nothing recoverable to frame
		return nil, true
	}
	if a.received.Len() < aduLen {
		return nil, false // header seen, rest of the ADU still to arrive
	}

	frame := make([]byte, aduLen)
	copy(frame, a.received.Next(aduLen))

	reqADU, err := packet.ParseTCPADU(frame)
	if err != nil {
		return nil, true
	}

	resp, respond := a.Handler.Handle(reqADU, frame)
	if !respond {
		return nil, false
	}
	return resp, false
}
