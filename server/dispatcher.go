// Package server implements the Modbus slave: register banks, the
// per-function-code dispatcher, and TCP/UDP/RTU listeners.
package server

import (
	"github.com/elsen-labs/modbus/packet"
)

// Dispatcher decodes an incoming ADU's PDU, validates and executes it
// against a set of register Banks, and produces the response PDU - the
// slave-side half of spec §4.5. Dispatcher holds no lock of its own: each
// bank read or write takes that bank's lock, and FC23 holds the holding
// register lock across its write and read, but requests from different
// peers are not otherwise serialized.
type Dispatcher struct {
	// UnitID is the identifier this slave answers to, plus broadcast (0).
	UnitID uint8
	Banks  *Banks
	Hooks  Hooks

	disabled map[uint8]bool
	log      *requestResponseLog
}

// NewDispatcher builds a Dispatcher for unitID against banks. All function
// codes are enabled by default; disable individual ones with Disable.
func NewDispatcher(unitID uint8, banks *Banks) *Dispatcher {
	return &Dispatcher{
		UnitID:   unitID,
		Banks:    banks,
		disabled: make(map[uint8]bool),
		log:      newRequestResponseLog(),
	}
}

// Disable turns off a function code; requests for it answer with exception
// code 1 (illegal function), per spec §6.2's per-FC disable flags.
func (d *Dispatcher) Disable(fc uint8) { d.disabled[fc] = true }

// Enable turns a previously disabled function code back on.
func (d *Dispatcher) Enable(fc uint8) { delete(d.disabled, fc) }

// Log returns the last (up to 100) {request, response} ADU byte pairs, per spec §6.3.
func (d *Dispatcher) Log() []RequestResponsePair {
	return d.log.Snapshot()
}

// dispatchResult carries a dispatch outcome back to the transport-specific caller.
type dispatchResult struct {
	// respond is false when the request must be silently dropped (wrong
	// unit id) or was a broadcast (unit id 0): Modbus slaves answer to
	// their own id only, never to a broadcast.
	respond  bool
	respADU  packet.ADU
	notified bool
}

// Dispatch decodes reqADU's PDU, runs it against the banks, and returns the
// response ADU to send (if any). reqBytes/respBytes, when non-nil, are
// recorded in the request/response log exactly as they crossed the wire.
func (d *Dispatcher) Dispatch(reqADU packet.ADU, reqBytes []byte, renderResponse func(packet.ADU) []byte) (respBytes []byte, respond bool) {
	result := d.dispatch(reqADU)
	if !result.respond {
		return nil, false
	}
	respBytes = renderResponse(result.respADU)
	d.log.append(reqBytes, respBytes)
	if d.Hooks != nil {
		d.Hooks.OnLogDataChanged()
	}
	return respBytes, true
}

func (d *Dispatcher) dispatch(reqADU packet.ADU) dispatchResult {
	// 1. unit id filter (spec §4.5 point 1).
	isBroadcast := reqADU.UnitID == 0
	if reqADU.UnitID != d.UnitID && !isBroadcast {
		return dispatchResult{respond: false}
	}

	pdu := reqADU.PDU
	if len(pdu) == 0 {
		return dispatchResult{respond: false}
	}
	fc := pdu[0]

	respPDU, err := d.execute(fc, pdu)
	if isBroadcast {
		// broadcast requests are still executed but never answered.
		return dispatchResult{respond: false}
	}
	if err != nil {
		respPDU = (&packet.Exception{FunctionCode: fc, Code: err.(exceptionCode).code}).EncodePDU()
	}
	return dispatchResult{
		respond: true,
		respADU: packet.ADU{TransactionID: reqADU.TransactionID, UnitID: d.UnitID, PDU: respPDU},
	}
}

// exceptionCode is the sentinel error execute returns to carry which
// exception code a validation failure maps to, without allocating a new
// *packet.Exception until the unit-id/broadcast check above has run.
type exceptionCode struct{ code packet.ExceptionCode }

func (e exceptionCode) Error() string { return e.code.String() }

func illegalFunction() error    { return exceptionCode{packet.ExceptionIllegalFunction} }
func illegalDataAddress() error { return exceptionCode{packet.ExceptionIllegalDataAddress} }
func illegalDataValue() error   { return exceptionCode{packet.ExceptionIllegalDataValue} }

// execute runs the validated request for fc and returns the success
// response PDU, or a non-nil error from the exceptionCode family.
func (d *Dispatcher) execute(fc uint8, pdu []byte) ([]byte, error) {
	if d.disabled[fc] {
		return nil, illegalFunction()
	}

	switch fc {
	case packet.FunctionReadCoils:
		return d.readBits(fc, pdu, d.Banks.Coils)
	case packet.FunctionReadDiscreteInputs:
		return d.readBits(fc, pdu, d.Banks.DiscreteInputs)
	case packet.FunctionReadHoldingRegisters:
		return d.readRegisters(fc, pdu, d.Banks.HoldingRegisters)
	case packet.FunctionReadInputRegisters:
		return d.readRegisters(fc, pdu, d.Banks.InputRegisters)
	case packet.FunctionWriteSingleCoil:
		return d.writeSingleCoil(pdu)
	case packet.FunctionWriteSingleRegister:
		return d.writeSingleRegister(pdu)
	case packet.FunctionWriteMultipleCoils:
		return d.writeMultipleCoils(pdu)
	case packet.FunctionWriteMultipleRegisters:
		return d.writeMultipleRegisters(pdu)
	case packet.FunctionReadWriteMultipleRegisters:
		return d.readWriteMultipleRegisters(pdu)
	default:
		return nil, illegalFunction()
	}
}

func (d *Dispatcher) readBits(fc uint8, pdu []byte, bank *bitBank) ([]byte, error) {
	_, address, quantity, err := packet.DecodeAddrQtyPDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateQuantity(true, quantity); err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateAddressRange(address, quantity); err != nil {
		return nil, illegalDataAddress()
	}
	if int(address)+int(quantity) > bank.len() {
		return nil, illegalDataAddress()
	}
	bits := bank.Get(address, quantity)
	return packet.EncodeDataResponsePDU(fc, packet.PackBits(bits)), nil
}

func (d *Dispatcher) readRegisters(fc uint8, pdu []byte, bank *registerBank) ([]byte, error) {
	_, address, quantity, err := packet.DecodeAddrQtyPDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateQuantity(false, quantity); err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateAddressRange(address, quantity); err != nil {
		return nil, illegalDataAddress()
	}
	if int(address)+int(quantity) > bank.len() {
		return nil, illegalDataAddress()
	}
	regs := bank.Get(address, quantity)
	return packet.EncodeDataResponsePDU(fc, packet.EncodeRegisters(regs)), nil
}

func (d *Dispatcher) writeSingleCoil(pdu []byte) ([]byte, error) {
	_, address, value, err := packet.DecodeAddrValuePDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if int(address) >= d.Banks.Coils.len() {
		return nil, illegalDataAddress()
	}
	if err := packet.ValidateSingleCoilValue(value); err != nil {
		return nil, illegalDataValue()
	}
	d.Banks.Coils.Set(address, []bool{value == packet.CoilOn})
	d.notifyCoilsChanged(address, 1)
	return pdu, nil // echo of request, per spec §4.3
}

func (d *Dispatcher) writeSingleRegister(pdu []byte) ([]byte, error) {
	_, address, value, err := packet.DecodeAddrValuePDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if int(address) >= d.Banks.HoldingRegisters.len() {
		return nil, illegalDataAddress()
	}
	d.Banks.HoldingRegisters.Set(address, []int16{int16(value)})
	d.notifyHoldingRegistersChanged(address, 1)
	return pdu, nil
}

func (d *Dispatcher) writeMultipleCoils(pdu []byte) ([]byte, error) {
	_, address, quantity, data, err := packet.DecodeWriteMultiplePDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateQuantity(true, quantity); err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateAddressRange(address, quantity); err != nil {
		return nil, illegalDataAddress()
	}
	if int(address)+int(quantity) > d.Banks.Coils.len() {
		return nil, illegalDataAddress()
	}
	values := packet.UnpackBits(data, int(quantity))
	d.Banks.Coils.Set(address, values)
	d.notifyCoilsChanged(address, quantity)
	return packet.EncodeAddrQtyPDU(packet.FunctionWriteMultipleCoils, address, quantity), nil
}

func (d *Dispatcher) writeMultipleRegisters(pdu []byte) ([]byte, error) {
	_, address, quantity, data, err := packet.DecodeWriteMultiplePDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateQuantity(false, quantity); err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateAddressRange(address, quantity); err != nil {
		return nil, illegalDataAddress()
	}
	if int(address)+int(quantity) > d.Banks.HoldingRegisters.len() {
		return nil, illegalDataAddress()
	}
	regs, err := packet.ParseReadRegistersResponse(packet.EncodeDataResponsePDU(packet.FunctionWriteMultipleRegisters, data))
	if err != nil {
		return nil, illegalDataValue()
	}
	d.Banks.HoldingRegisters.Set(address, regs)
	d.notifyHoldingRegistersChanged(address, quantity)
	return packet.EncodeAddrQtyPDU(packet.FunctionWriteMultipleRegisters, address, quantity), nil
}

func (d *Dispatcher) readWriteMultipleRegisters(pdu []byte) ([]byte, error) {
	readAddress, readQuantity, writeAddress, writeQuantity, writeData, err := packet.DecodeReadWriteMultiplePDU(pdu)
	if err != nil {
		return nil, illegalDataValue()
	}
	// quantity ranges first; the write byte count is checked after the address range.
	if err := packet.ValidateReadWriteMultiple(readQuantity, writeQuantity, 2*int(writeQuantity)); err != nil {
		return nil, illegalDataValue()
	}
	if err := packet.ValidateAddressRange(readAddress, readQuantity); err != nil {
		return nil, illegalDataAddress()
	}
	if err := packet.ValidateAddressRange(writeAddress, writeQuantity); err != nil {
		return nil, illegalDataAddress()
	}
	bank := d.Banks.HoldingRegisters
	if int(readAddress)+int(readQuantity) > bank.len() || int(writeAddress)+int(writeQuantity) > bank.len() {
		return nil, illegalDataAddress()
	}
	if err := packet.ValidateReadWriteMultiple(readQuantity, writeQuantity, len(writeData)); err != nil {
		return nil, illegalDataValue()
	}

	writeValues, err := packet.ParseReadRegistersResponse(packet.EncodeDataResponsePDU(packet.FunctionReadWriteMultipleRegisters, writeData))
	if err != nil {
		return nil, illegalDataValue()
	}

	// write then read, atomically, under the bank's lock (spec §4.5).
	bank.Lock()
	bank.set(writeAddress, writeValues)
	result := bank.get(readAddress, readQuantity)
	bank.Unlock()

	d.notifyHoldingRegistersChanged(writeAddress, writeQuantity)
	return packet.EncodeDataResponsePDU(packet.FunctionReadWriteMultipleRegisters, packet.EncodeRegisters(result)), nil
}

func (d *Dispatcher) notifyCoilsChanged(address, count uint16) {
	if d.Hooks == nil {
		return
	}
	d.Hooks.OnCoilsChanged(address+1, count)
}

func (d *Dispatcher) notifyHoldingRegistersChanged(address, count uint16) {
	if d.Hooks == nil {
		return
	}
	d.Hooks.OnHoldingRegistersChanged(address+1, count)
}
