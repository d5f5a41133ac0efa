package modbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted transport double used to drive Master.transact
// without touching real sockets or serial ports.
type fakeTransport struct {
	responses [][]byte
	errs      []error
	calls     int
	sent      [][]byte
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) writeThenRead(ctx context.Context, data []byte) ([]byte, error) {
	f.sent = append(f.sent, data)
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp []byte
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func newTCPMasterWithTransport(tr transport) *Master {
	m := newMaster(kindTCP, MasterConfig{})
	m.transport = tr
	return m
}

func TestMaster_ReadHoldingRegisters(t *testing.T) {
	resp := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x11, 0x03, 0x04, 0x02, 0x2B, 0x00, 0x00}
	ft := &fakeTransport{responses: [][]byte{resp}}
	m := newTCPMasterWithTransport(ft)
	m.txID.Store(0) // first nextTransactionID() call returns 1, matching resp's header

	regs, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.NoError(t, err)
	assert.Equal(t, []int16{0x022B, 0x0000}, regs)
	assert.Len(t, ft.sent, 1)
}

func TestMaster_transactNet_exceptionResponse(t *testing.T) {
	resp := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x11, 0x83, 0x02}
	ft := &fakeTransport{responses: [][]byte{resp}}
	m := newTCPMasterWithTransport(ft)

	_, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.Error(t, err)
	var excErr *ModbusExceptionError
	require.ErrorAs(t, err, &excErr)
	assert.Equal(t, StartingAddressInvalid, excErr.Variant)
}

func TestMaster_transactNet_mismatchedTransactionID(t *testing.T) {
	resp := []byte{0x00, 0x99, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	ft := &fakeTransport{responses: [][]byte{resp}}
	m := newTCPMasterWithTransport(ft)

	_, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.Error(t, err)
	var typedErr *Error
	require.ErrorAs(t, err, &typedErr)
	assert.Equal(t, CrcCheckFailed, typedErr.Kind)
}

func TestMaster_transactNet_notConnected(t *testing.T) {
	m := newMaster(kindTCP, MasterConfig{})

	_, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestMaster_ReadCoils_illegalArgument(t *testing.T) {
	m := newTCPMasterWithTransport(&fakeTransport{})

	_, err := m.ReadCoils(context.Background(), 0x11, 0, 0)

	require.Error(t, err)
	var typedErr *Error
	require.ErrorAs(t, err, &typedErr)
	assert.Equal(t, IllegalArgument, typedErr.Kind)
}

// fakeExpectingTransport scripts the RTU read loop's outcome across
// successive attempts, satisfying expectingTransport directly so
// Master.transactRTU's retry logic can be exercised without a real port.
type fakeExpectingTransport struct {
	attempts  int
	failTimes int // number of leading attempts that return an error
	success   []byte
}

func (f *fakeExpectingTransport) Close() error { return nil }

func (f *fakeExpectingTransport) writeThenRead(ctx context.Context, data []byte) ([]byte, error) {
	return f.writeThenReadExpecting(ctx, data, 0)
}

func (f *fakeExpectingTransport) writeThenReadExpecting(ctx context.Context, data []byte, expectedLen int) ([]byte, error) {
	f.attempts++
	if f.attempts <= f.failTimes {
		return nil, ErrTimeoutExpired
	}
	return f.success, nil
}

func TestMaster_transactRTU_retriesThenSucceeds(t *testing.T) {
	good := []byte{0x11, 0x03, 0x04, 0x02, 0x2B, 0x00, 0x00, 0x9A, 0x42}

	m := newMaster(kindRTU, MasterConfig{Retries: 2})
	st := &fakeExpectingTransport{failTimes: 1, success: good}
	m.transport = st

	regs, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.NoError(t, err)
	assert.Equal(t, []int16{0x022B, 0x0000}, regs)
	assert.Equal(t, 2, st.attempts)
}

func TestMaster_transactRTU_exhaustsRetries(t *testing.T) {
	m := newMaster(kindRTU, MasterConfig{Retries: 2})
	st := &fakeExpectingTransport{failTimes: 99}
	m.transport = st

	_, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.Error(t, err)
	assert.Equal(t, 3, st.attempts) // initial attempt + 2 retries
}

// corruptingExpectingTransport scripts a fixed sequence of response frames
// across successive attempts, so a single bit error in an early frame (spec
// §8 scenario 6) can be exercised instead of only the timeout sentinel.
type corruptingExpectingTransport struct {
	attempts  int
	responses [][]byte
}

func (f *corruptingExpectingTransport) Close() error { return nil }

func (f *corruptingExpectingTransport) writeThenRead(ctx context.Context, data []byte) ([]byte, error) {
	return f.writeThenReadExpecting(ctx, data, 0)
}

func (f *corruptingExpectingTransport) writeThenReadExpecting(ctx context.Context, data []byte, expectedLen int) ([]byte, error) {
	i := f.attempts
	f.attempts++
	if i >= len(f.responses) {
		return nil, ErrTimeoutExpired
	}
	return f.responses[i], nil
}

// withCorruptedCRC flips the last byte of a well-formed RTU frame, so the
// unit id/PDU decode the same but the trailing CRC no longer matches.
func withCorruptedCRC(frame []byte) []byte {
	corrupted := append([]byte(nil), frame...)
	corrupted[len(corrupted)-1] ^= 0xFF
	return corrupted
}

func TestMaster_transactRTU_retriesPastCorruptedCRCThenSucceeds(t *testing.T) {
	// spec §8 scenario 6: inject a single bit error into the first response
	// of read_holding_registers; the master must retry and succeed on the
	// clean response.
	good := []byte{0x11, 0x03, 0x04, 0x02, 0x2B, 0x00, 0x00, 0x9A, 0x42}
	bad := withCorruptedCRC(good)

	m := newMaster(kindRTU, MasterConfig{Retries: 3})
	st := &corruptingExpectingTransport{responses: [][]byte{bad, good}}
	m.transport = st

	regs, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.NoError(t, err)
	assert.Equal(t, []int16{0x022B, 0x0000}, regs)
	assert.Equal(t, 2, st.attempts)
}

func TestMaster_transactRTU_exhaustsRetriesOnRepeatedCRCFailure(t *testing.T) {
	good := []byte{0x11, 0x03, 0x04, 0x02, 0x2B, 0x00, 0x00, 0x9A, 0x42}
	bad := withCorruptedCRC(good)

	m := newMaster(kindRTU, MasterConfig{Retries: 2})
	st := &corruptingExpectingTransport{responses: [][]byte{bad, bad, bad}}
	m.transport = st

	_, err := m.ReadHoldingRegisters(context.Background(), 0x11, 0x006B, 2)

	require.Error(t, err)
	var typedErr *Error
	require.ErrorAs(t, err, &typedErr)
	assert.Equal(t, CrcCheckFailed, typedErr.Kind)
	assert.Equal(t, 3, st.attempts) // initial attempt + 2 retries
}
