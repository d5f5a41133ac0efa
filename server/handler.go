package server

import "github.com/elsen-labs/modbus/packet"

// TCPHandler adapts a Dispatcher to ModbusHandler for TCP and UDP listeners,
// both of which frame responses as MBAP + PDU.
type TCPHandler struct{ *Dispatcher }

// Handle implements ModbusHandler.
func (h TCPHandler) Handle(reqADU packet.ADU, reqBytes []byte) ([]byte, bool) {
	return h.Dispatch(reqADU, reqBytes, func(a packet.ADU) []byte { return a.TCPBytes() })
}

// RTUHandler adapts a Dispatcher to ModbusHandler for the RTU listener,
// which frames responses as unit id + PDU + CRC.
type RTUHandler struct{ *Dispatcher }

// Handle implements ModbusHandler.
func (h RTUHandler) Handle(reqADU packet.ADU, reqBytes []byte) ([]byte, bool) {
	return h.Dispatch(reqADU, reqBytes, func(a packet.ADU) []byte { return a.RTUBytes() })
}
