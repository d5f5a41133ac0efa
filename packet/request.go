package packet

import "fmt"

// Request is the common shape every master operation produces: an ADU ready
// to hand to a transport, and the byte length a well-formed response PDU
// would have so transports know when to stop reading.
type Request struct {
	ADU
	// ExpectedResponsePDULen is the PDU length (function code onward, no unit
	// id/CRC/header) a successful response to this request must have.
	ExpectedResponsePDULen int
}

// ValidateQuantity enforces the per-FC quantity ceiling of spec §4.3:
// bits (FC1/2/15) <= 2000, registers (FC3/4/16) <= 125.
func ValidateQuantity(isBits bool, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("quantity must be at least 1")
	}
	max := MaxRegistersPerRequest
	if isBits {
		max = MaxCoilsPerRequest
	}
	if quantity > max {
		return fmt.Errorf("quantity %d exceeds maximum of %d", quantity, max)
	}
	return nil
}

// ValidateAddressRange enforces spec §4.5 point 3: starting_address + 1 +
// quantity must not exceed 65535.
func ValidateAddressRange(address uint16, quantity uint16) error {
	if uint32(address)+1+uint32(quantity) > 65535 {
		return fmt.Errorf("address %d with quantity %d exceeds the addressable range", address, quantity)
	}
	return nil
}

// ValidateSingleCoilValue enforces spec §4.5 point 4: FC5's value must be
// exactly 0x0000 or 0xFF00.
func ValidateSingleCoilValue(value uint16) error {
	if value != CoilOn && value != CoilOff {
		return fmt.Errorf("single coil value must be 0x0000 or 0xFF00, got 0x%04X", value)
	}
	return nil
}

// ValidateReadWriteMultiple enforces spec §4.5 point 5: read qty in [1,125],
// write qty in [1,121], and byteCount == writeQuantity*2.
func ValidateReadWriteMultiple(readQuantity, writeQuantity uint16, writeByteCount int) error {
	if readQuantity < 1 || readQuantity > MaxReadWriteReadQty {
		return fmt.Errorf("read quantity %d out of range [1,%d]", readQuantity, MaxReadWriteReadQty)
	}
	if writeQuantity < 1 || writeQuantity > MaxReadWriteWriteQty {
		return fmt.Errorf("write quantity %d out of range [1,%d]", writeQuantity, MaxReadWriteWriteQty)
	}
	if writeByteCount != int(writeQuantity)*2 {
		return fmt.Errorf("write byte count %d does not match write quantity %d", writeByteCount, writeQuantity)
	}
	return nil
}

// NewReadRequest builds the request ADU shared by FC1/2/3/4: fc, address, quantity.
func NewReadRequest(fc uint8, transactionID uint16, unitID uint8, address, quantity uint16) (Request, error) {
	isBits := fc == FunctionReadCoils || fc == FunctionReadDiscreteInputs
	if err := ValidateQuantity(isBits, quantity); err != nil {
		return Request{}, err
	}
	if err := ValidateAddressRange(address, quantity); err != nil {
		return Request{}, err
	}
	pdu := EncodeAddrQtyPDU(fc, address, quantity)
	respBytes := int(quantity)
	if isBits {
		respBytes = (int(quantity) + 7) / 8
	} else {
		respBytes *= 2
	}
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 2 + respBytes, // fc, byteCount, data...
	}, nil
}

// NewWriteSingleCoilRequest builds the FC5 request ADU.
func NewWriteSingleCoilRequest(transactionID uint16, unitID uint8, address uint16, on bool) (Request, error) {
	value := uint16(CoilOff)
	if on {
		value = CoilOn
	}
	pdu := EncodeAddrValuePDU(FunctionWriteSingleCoil, address, value)
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 5,
	}, nil
}

// NewWriteSingleRegisterRequest builds the FC6 request ADU.
func NewWriteSingleRegisterRequest(transactionID uint16, unitID uint8, address uint16, value int16) (Request, error) {
	pdu := EncodeAddrValuePDU(FunctionWriteSingleRegister, address, uint16(value))
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 5,
	}, nil
}

// NewWriteMultipleCoilsRequest builds the FC15 request ADU.
func NewWriteMultipleCoilsRequest(transactionID uint16, unitID uint8, address uint16, values []bool) (Request, error) {
	quantity := uint16(len(values))
	if err := ValidateQuantity(true, quantity); err != nil {
		return Request{}, err
	}
	if err := ValidateAddressRange(address, quantity); err != nil {
		return Request{}, err
	}
	pdu := EncodeWriteMultiplePDU(FunctionWriteMultipleCoils, address, quantity, PackBits(values))
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 5,
	}, nil
}

// NewWriteMultipleRegistersRequest builds the FC16 request ADU.
func NewWriteMultipleRegistersRequest(transactionID uint16, unitID uint8, address uint16, values []int16) (Request, error) {
	quantity := uint16(len(values))
	if err := ValidateQuantity(false, quantity); err != nil {
		return Request{}, err
	}
	if err := ValidateAddressRange(address, quantity); err != nil {
		return Request{}, err
	}
	data := EncodeRegisters(values)
	pdu := EncodeWriteMultiplePDU(FunctionWriteMultipleRegisters, address, quantity, data)
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 5,
	}, nil
}

// NewReadWriteMultipleRegistersRequest builds the FC23 request ADU.
func NewReadWriteMultipleRegistersRequest(transactionID uint16, unitID uint8, readAddress, readQuantity, writeAddress uint16, writeValues []int16) (Request, error) {
	writeQuantity := uint16(len(writeValues))
	if err := ValidateReadWriteMultiple(readQuantity, writeQuantity, 2*len(writeValues)); err != nil {
		return Request{}, err
	}
	if err := ValidateAddressRange(readAddress, readQuantity); err != nil {
		return Request{}, err
	}
	if err := ValidateAddressRange(writeAddress, writeQuantity); err != nil {
		return Request{}, err
	}
	data := EncodeRegisters(writeValues)
	pdu := EncodeReadWriteMultiplePDU(readAddress, readQuantity, writeAddress, writeQuantity, data)
	return Request{
		ADU:                    ADU{TransactionID: transactionID, UnitID: unitID, PDU: pdu},
		ExpectedResponsePDULen: 2 + 2*int(readQuantity),
	}, nil
}
