package packet

import "fmt"

// ExceptionCode is the single byte a Modbus exception response carries after
// the error function code, per spec §7.
type ExceptionCode uint8

const (
	ExceptionIllegalFunction                    = ExceptionCode(1)
	ExceptionIllegalDataAddress                 = ExceptionCode(2)
	ExceptionIllegalDataValue                   = ExceptionCode(3)
	ExceptionServerDeviceFailure                = ExceptionCode(4)
	ExceptionAcknowledge                        = ExceptionCode(5)
	ExceptionServerDeviceBusy                   = ExceptionCode(6)
	ExceptionGatewayPathUnavailable             = ExceptionCode(10)
	ExceptionGatewayTargetDeviceFailedToRespond = ExceptionCode(11)
)

// String renders the exception code using the names from the Modbus
// Application Protocol specification.
func (c ExceptionCode) String() string {
	switch c {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionServerDeviceFailure:
		return "server device failure"
	case ExceptionAcknowledge:
		return "acknowledge"
	case ExceptionServerDeviceBusy:
		return "server device busy"
	case ExceptionGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExceptionGatewayTargetDeviceFailedToRespond:
		return "gateway target device failed to respond"
	default:
		return fmt.Sprintf("unknown exception code %d", uint8(c))
	}
}

// Exception is a well-formed Modbus exception response: the error function
// code (original function code with the 0x80 bit set) plus the one-byte
// exception code, per spec §3 "ModbusException".
type Exception struct {
	FunctionCode uint8 // original, non-error function code
	Code         ExceptionCode
}

// Error implements the error interface.
func (e *Exception) Error() string {
	return fmt.Sprintf("modbus exception on function %d: %s", e.FunctionCode, e.Code)
}

// EncodePDU returns the 2-byte exception PDU: [functionCode|0x80, code].
func (e *Exception) EncodePDU() []byte {
	return []byte{e.FunctionCode | functionCodeErrorBitmask, uint8(e.Code)}
}

// DecodeExceptionPDU returns the Exception carried by pdu if pdu's function
// code has the error bit set, otherwise returns nil, false.
func DecodeExceptionPDU(pdu []byte) (*Exception, bool) {
	if len(pdu) < 2 || !IsErrorFunctionCode(pdu[0]) {
		return nil, false
	}
	return &Exception{
		FunctionCode: pdu[0] &^ functionCodeErrorBitmask,
		Code:         ExceptionCode(pdu[1]),
	}, true
}
