package modbus

import (
	"errors"
	"fmt"

	"github.com/elsen-labs/modbus/packet"
)

// Error is the tagged-sum error a Master operation reports through, except
// for exception responses, which arrive as *ModbusExceptionError. Kind identifies the category so callers
// can switch on it without string matching; Err carries the underlying
// cause (a wrapped net/io error, a packet decode error, etc).
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind enumerates the error categories a Modbus operation can fail with.
type ErrorKind uint8

const (
	// NotConnected means the transport has not dialed (or has lost) its peer.
	NotConnected ErrorKind = iota
	// SerialPortNotOpen means an RTU transport is configured but its serial port is closed.
	SerialPortNotOpen
	// IllegalArgument means a caller-supplied argument is out of the range the protocol allows.
	IllegalArgument
	// TimeoutExpired means no matching response arrived before the deadline.
	TimeoutExpired
	// CrcCheckFailed means an RTU response's trailing CRC did not match the recomputed one. The
	// Master also reports a malformed TCP/UDP frame, a mismatched transaction id and a mismatched
	// RTU unit id under this kind.
	CrcCheckFailed
	// ModbusExceptionKind names the exception-response category. The Master does not return it
	// in an Error; exception responses arrive as *ModbusExceptionError.
	ModbusExceptionKind
)

func (k ErrorKind) String() string {
	switch k {
	case NotConnected:
		return "not connected"
	case SerialPortNotOpen:
		return "serial port not open"
	case IllegalArgument:
		return "illegal argument"
	case TimeoutExpired:
		return "timeout expired"
	case CrcCheckFailed:
		return "crc check failed"
	case ModbusExceptionKind:
		return "modbus exception"
	default:
		return "unknown error kind"
	}
}

// ModbusExceptionError is the error a Master operation returns when the
// peer answered with a well-formed exception response. Code carries the raw
// wire exception code; Variant is the typed sub-variant spec §7 maps it to.
type ModbusExceptionError struct {
	FunctionCode uint8
	Code         packet.ExceptionCode
	Variant      ExceptionVariant
}

func (e *ModbusExceptionError) Error() string {
	return fmt.Sprintf("modbus exception on function %d: %s (%s)", e.FunctionCode, e.Code, e.Variant)
}

// ExceptionVariant is the typed sub-variant an exception code maps to, per spec §7.
type ExceptionVariant uint8

const (
	FunctionCodeNotSupported ExceptionVariant = iota
	StartingAddressInvalid
	QuantityInvalid
	SlaveDeviceFailure
	Acknowledge
	SlaveDeviceBusy
	GatewayPathUnavailable
	GatewayTargetFailedToRespond
	UnknownException
)

func (v ExceptionVariant) String() string {
	switch v {
	case FunctionCodeNotSupported:
		return "function code not supported"
	case StartingAddressInvalid:
		return "starting address invalid"
	case QuantityInvalid:
		return "quantity invalid"
	case SlaveDeviceFailure:
		return "slave device failure"
	case Acknowledge:
		return "acknowledge"
	case SlaveDeviceBusy:
		return "slave device busy"
	case GatewayPathUnavailable:
		return "gateway path unavailable"
	case GatewayTargetFailedToRespond:
		return "gateway target failed to respond"
	default:
		return "unknown"
	}
}

// exceptionVariantFor maps a wire exception code to its typed sub-variant.
func exceptionVariantFor(code packet.ExceptionCode) ExceptionVariant {
	switch code {
	case packet.ExceptionIllegalFunction:
		return FunctionCodeNotSupported
	case packet.ExceptionIllegalDataAddress:
		return StartingAddressInvalid
	case packet.ExceptionIllegalDataValue:
		return QuantityInvalid
	case packet.ExceptionServerDeviceFailure:
		return SlaveDeviceFailure
	case packet.ExceptionAcknowledge:
		return Acknowledge
	case packet.ExceptionServerDeviceBusy:
		return SlaveDeviceBusy
	case packet.ExceptionGatewayPathUnavailable:
		return GatewayPathUnavailable
	case packet.ExceptionGatewayTargetDeviceFailedToRespond:
		return GatewayTargetFailedToRespond
	default:
		return UnknownException
	}
}

// newExceptionError builds a ModbusExceptionError from a decoded packet.Exception.
func newExceptionError(exc *packet.Exception) *ModbusExceptionError {
	return &ModbusExceptionError{
		FunctionCode: exc.FunctionCode,
		Code:         exc.Code,
		Variant:      exceptionVariantFor(exc.Code),
	}
}

// Sentinel, argument-less instances for the kinds that carry no dynamic cause.
var (
	ErrNotConnected      = &Error{Kind: NotConnected, Err: errors.New("transport is not connected")}
	ErrSerialPortNotOpen = &Error{Kind: SerialPortNotOpen, Err: errors.New("serial port is configured but not open")}
	ErrTimeoutExpired    = &Error{Kind: TimeoutExpired, Err: errors.New("no matching response received within the deadline")}
)

// newIllegalArgumentError wraps a validation error as the IllegalArgument kind.
func newIllegalArgumentError(err error) *Error {
	return &Error{Kind: IllegalArgument, Err: err}
}

// newCrcCheckFailedError wraps a CRC mismatch as the CrcCheckFailed kind.
func newCrcCheckFailedError(err error) *Error {
	return &Error{Kind: CrcCheckFailed, Err: err}
}

// newNotConnectedError wraps a transport-level connect/write failure as the NotConnected kind.
func newNotConnectedError(err error) *Error {
	return &Error{Kind: NotConnected, Err: err}
}
