// Package modbus implements a Modbus master (client) and, in the server
// subpackage, a Modbus slave (server): the MBAP/RTU frame codec lives in
// packet, the transaction engine and error hierarchy live here.
package modbus

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elsen-labs/modbus/packet"
)

// transportKind selects which ADU framing and completion rule a Master uses.
type transportKind uint8

const (
	kindTCP transportKind = iota
	kindUDP
	kindRTU
)

// defaultRTURetries is how many additional attempts a Master makes after a
// CRC mismatch or timeout on an RTU transaction, per spec §4.4.
const defaultRTURetries = 3

// MasterConfig configures a Master. Zero values take the package defaults.
type MasterConfig struct {
	// WriteTimeout bounds how long writing the request may take.
	WriteTimeout time.Duration
	// ReadTimeout bounds how long reading the full response may take.
	ReadTimeout time.Duration
	// Retries is how many additional attempts an RTU Master makes after a
	// CRC mismatch or timeout before surfacing the error. Ignored for TCP/UDP.
	Retries int
	// DialContextFunc overrides how TCP/UDP Masters dial their peer.
	DialContextFunc func(ctx context.Context, address string) (net.Conn, error)
	// Hooks lets a caller observe raw bytes written/read, for logging.
	Hooks Hooks
}

// Master sends Modbus requests to a single remote device (TCP/UDP server or
// RTU slave) and decodes its responses. A Master is safe for concurrent use;
// requests are serialized since Modbus has no multiplexing at the wire level.
type Master struct {
	kind transportKind

	writeTimeout time.Duration
	readTimeout  time.Duration
	retries      int

	dialContextFunc func(ctx context.Context, address string) (net.Conn, error)
	hooks           Hooks

	mu        sync.Mutex
	transport transport
	txID      atomic.Uint32
}

func newMaster(kind transportKind, conf MasterConfig) *Master {
	m := &Master{
		kind:            kind,
		writeTimeout:    defaultWriteTimeout,
		readTimeout:     defaultReadTimeout,
		retries:         defaultRTURetries,
		dialContextFunc: dialContext,
		hooks:           conf.Hooks,
	}
	if conf.WriteTimeout > 0 {
		m.writeTimeout = conf.WriteTimeout
	}
	if conf.ReadTimeout > 0 {
		m.readTimeout = conf.ReadTimeout
	}
	if conf.Retries > 0 {
		m.retries = conf.Retries
	}
	if conf.DialContextFunc != nil {
		m.dialContextFunc = conf.DialContextFunc
	}
	return m
}

// NewTCPMaster creates a Master for Modbus TCP.
func NewTCPMaster(conf MasterConfig) *Master { return newMaster(kindTCP, conf) }

// NewUDPMaster creates a Master for Modbus over UDP (same MBAP framing as TCP).
func NewUDPMaster(conf MasterConfig) *Master { return newMaster(kindUDP, conf) }

// NewRTUMaster creates a Master for Modbus RTU over an already-open serial port.
func NewRTUMaster(conf MasterConfig) *Master { return newMaster(kindRTU, conf) }

// Connect dials a TCP or UDP peer. ctx bounds only the dial itself.
// It is an error to call Connect on a Master created with NewRTUMaster; use
// OpenSerial instead.
func (m *Master) Connect(ctx context.Context, address string) error {
	if m.kind == kindRTU {
		return newIllegalArgumentError(fmt.Errorf("Connect is not valid for an RTU master, use OpenSerial"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.dialContextFunc(ctx, address)
	if err != nil {
		return newNotConnectedError(err)
	}
	m.transport = newNetConnTransport(conn, m.writeTimeout, m.readTimeout, m.hooks)
	if m.hooks != nil {
		m.hooks.OnConnectedChanged(true)
	}
	return nil
}

// OpenSerial attaches an already-open serial port to an RTU Master.
func (m *Master) OpenSerial(port io.ReadWriteCloser) error {
	if m.kind != kindRTU {
		return newIllegalArgumentError(fmt.Errorf("OpenSerial is only valid for an RTU master"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transport = newSerialTransport(port, m.readTimeout, m.hooks)
	if m.hooks != nil {
		m.hooks.OnConnectedChanged(true)
	}
	return nil
}

// Close releases the underlying connection or serial port.
func (m *Master) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return nil
	}
	err := m.transport.Close()
	if m.hooks != nil {
		m.hooks.OnConnectedChanged(false)
	}
	return err
}

func (m *Master) nextTransactionID() uint16 {
	return uint16(m.txID.Add(1))
}

// transact is the single primitive every public operation funnels through
// (spec §9): build request bytes for this Master's transport kind, exchange
// them, validate the response shape, and surface either the response PDU or
// a typed Error.
func (m *Master) transact(ctx context.Context, req packet.Request) ([]byte, error) {
	if m.kind == kindRTU {
		return m.transactRTU(ctx, req)
	}
	return m.transactNet(ctx, req)
}

func (m *Master) transactNet(ctx context.Context, req packet.Request) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil {
		return nil, ErrNotConnected
	}
	resp, err := m.transport.writeThenRead(ctx, req.TCPBytes())
	if err != nil {
		return nil, err
	}
	adu, err := packet.ParseTCPADU(resp)
	if err != nil {
		// framing validation failure; no dedicated error kind exists for it
		// so it is surfaced the same way a corrupt RTU frame is (see DESIGN.md).
		return nil, newCrcCheckFailedError(err)
	}
	if adu.TransactionID != req.TransactionID {
		return nil, newCrcCheckFailedError(fmt.Errorf("response transaction id %d does not match request %d", adu.TransactionID, req.TransactionID))
	}
	if exc, ok := packet.DecodeExceptionPDU(adu.PDU); ok {
		return nil, newExceptionError(exc)
	}
	return adu.PDU, nil
}

// expectingTransport is implemented by serialTransport (and test doubles): a
// transport whose completion rule needs the caller-known expected response
// length, since RTU frames carry no length field of their own.
type expectingTransport interface {
	writeThenReadExpecting(ctx context.Context, data []byte, expectedLen int) ([]byte, error)
}

func (m *Master) transactRTU(ctx context.Context, req packet.Request) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.transport.(expectingTransport)
	if !ok || st == nil {
		return nil, ErrSerialPortNotOpen
	}

	expectedLen := 1 + req.ExpectedResponsePDULen + 2
	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		resp, err := st.writeThenReadExpecting(ctx, req.RTUBytes(), expectedLen)
		if err != nil {
			lastErr = err
			continue
		}
		adu, err := packet.ParseRTUADU(resp)
		if err != nil {
			lastErr = newCrcCheckFailedError(err)
			continue
		}
		if adu.UnitID != req.UnitID {
			lastErr = newCrcCheckFailedError(fmt.Errorf("response unit id %d does not match request %d", adu.UnitID, req.UnitID))
			continue
		}
		if exc, ok := packet.DecodeExceptionPDU(adu.PDU); ok {
			return nil, newExceptionError(exc)
		}
		return adu.PDU, nil
	}
	return nil, lastErr
}

// ReadCoils performs function code 1.
func (m *Master) ReadCoils(ctx context.Context, unitID uint8, address, quantity uint16) ([]bool, error) {
	req, err := packet.NewReadRequest(packet.FunctionReadCoils, m.nextTransactionID(), unitID, address, quantity)
	if err != nil {
		return nil, newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return nil, err
	}
	return packet.ParseReadBitsResponse(pdu, int(quantity))
}

// ReadDiscreteInputs performs function code 2.
func (m *Master) ReadDiscreteInputs(ctx context.Context, unitID uint8, address, quantity uint16) ([]bool, error) {
	req, err := packet.NewReadRequest(packet.FunctionReadDiscreteInputs, m.nextTransactionID(), unitID, address, quantity)
	if err != nil {
		return nil, newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return nil, err
	}
	return packet.ParseReadBitsResponse(pdu, int(quantity))
}

// ReadHoldingRegisters performs function code 3.
func (m *Master) ReadHoldingRegisters(ctx context.Context, unitID uint8, address, quantity uint16) ([]int16, error) {
	req, err := packet.NewReadRequest(packet.FunctionReadHoldingRegisters, m.nextTransactionID(), unitID, address, quantity)
	if err != nil {
		return nil, newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return nil, err
	}
	return packet.ParseReadRegistersResponse(pdu)
}

// ReadInputRegisters performs function code 4.
func (m *Master) ReadInputRegisters(ctx context.Context, unitID uint8, address, quantity uint16) ([]int16, error) {
	req, err := packet.NewReadRequest(packet.FunctionReadInputRegisters, m.nextTransactionID(), unitID, address, quantity)
	if err != nil {
		return nil, newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return nil, err
	}
	return packet.ParseReadRegistersResponse(pdu)
}

// WriteSingleCoil performs function code 5.
func (m *Master) WriteSingleCoil(ctx context.Context, unitID uint8, address uint16, on bool) error {
	req, err := packet.NewWriteSingleCoilRequest(m.nextTransactionID(), unitID, address, on)
	if err != nil {
		return newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return err
	}
	_, _, err = packet.ParseWriteSingleResponse(pdu)
	return err
}

// WriteSingleRegister performs function code 6.
func (m *Master) WriteSingleRegister(ctx context.Context, unitID uint8, address uint16, value int16) error {
	req, err := packet.NewWriteSingleRegisterRequest(m.nextTransactionID(), unitID, address, value)
	if err != nil {
		return newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return err
	}
	_, _, err = packet.ParseWriteSingleResponse(pdu)
	return err
}

// WriteMultipleCoils performs function code 15.
func (m *Master) WriteMultipleCoils(ctx context.Context, unitID uint8, address uint16, values []bool) error {
	req, err := packet.NewWriteMultipleCoilsRequest(m.nextTransactionID(), unitID, address, values)
	if err != nil {
		return newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return err
	}
	_, _, err = packet.ParseWriteMultipleResponse(pdu)
	return err
}

// WriteMultipleRegisters performs function code 16.
func (m *Master) WriteMultipleRegisters(ctx context.Context, unitID uint8, address uint16, values []int16) error {
	req, err := packet.NewWriteMultipleRegistersRequest(m.nextTransactionID(), unitID, address, values)
	if err != nil {
		return newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return err
	}
	_, _, err = packet.ParseWriteMultipleResponse(pdu)
	return err
}

// ReadWriteMultipleRegisters performs function code 23: write writeValues at
// writeAddress, then return readQuantity registers starting at readAddress,
// as a single atomic transaction on the slave.
func (m *Master) ReadWriteMultipleRegisters(ctx context.Context, unitID uint8, readAddress, readQuantity, writeAddress uint16, writeValues []int16) ([]int16, error) {
	req, err := packet.NewReadWriteMultipleRegistersRequest(m.nextTransactionID(), unitID, readAddress, readQuantity, writeAddress, writeValues)
	if err != nil {
		return nil, newIllegalArgumentError(err)
	}
	pdu, err := m.transact(ctx, req)
	if err != nil {
		return nil, err
	}
	return packet.ParseReadRegistersResponse(pdu)
}
