package modbus

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/elsen-labs/modbus/packet"
)

// tcpADUMaxLen and rtuADUMaxLen bound how many bytes a single ADU can ever
// be, per the Modbus Application Protocol Specification V1.1b3: the MODBUS
// PDU is limited to 253 bytes (inherited from the original serial-line
// implementation), so TCP/UDP ADUs top out at 7+253 and RTU ADUs at 1+253+2.
const (
	tcpADUMaxLen = 7 + 253
	rtuADUMaxLen = 1 + 253 + 2

	defaultWriteTimeout   = 1 * time.Second
	defaultReadTimeout    = 2 * time.Second
	defaultConnectTimeout = 1 * time.Second
)

// transport is the byte-level duplex a Master writes requests to and reads
// responses from. netConnTransport (TCP and UDP) and serialTransport (RTU)
// implement it; Master itself knows nothing about sockets or serial ports beyond this
// interface (spec §9's single transact primitive).
type transport interface {
	io.Closer
	// writeThenRead writes data, then blocks until a complete ADU has
	// arrived or the transport's own read timeout/ctx expires.
	writeThenRead(ctx context.Context, data []byte) ([]byte, error)
}

// Flusher is implemented by serial ports that can discard unread/unwritten
// buffered bytes, so a half-read frame left over from a failed transaction
// does not corrupt the next one.
type Flusher interface {
	Flush() error
}

// Hooks lets callers observe the raw bytes a Master sends and receives, for
// logging or wire-level debugging, and its connection state (spec §6.3).
// Implementations must not retain or modify the given slices.
type Hooks interface {
	BeforeWrite(toWrite []byte)
	AfterEachRead(received []byte, n int, err error)
	// OnConnectedChanged reports transitions between connected (true) and
	// disconnected (false): a successful Connect/OpenSerial, an explicit
	// Close, or a transport read/write failing with a NotConnected error.
	OnConnectedChanged(state bool)
}

func dialContext(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   defaultConnectTimeout,
		KeepAlive: 15 * time.Second,
	}
	network, addr := addressExtractor(address)
	return dialer.DialContext(ctx, network, addr)
}

func addressExtractor(address string) (string, string) {
	network, addr, ok := strings.Cut(address, "://")
	if !ok {
		return "tcp", address
	}
	return network, addr
}

// netConnTransport implements transport over a net.Conn, for both Modbus TCP
// and Modbus UDP: their ADUs share the same MBAP-header framing, so the
// completion check is identical (spec §4.1 "Transports").
type netConnTransport struct {
	conn         net.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration
	timeNow      func() time.Time
	hooks        Hooks
}

func newNetConnTransport(conn net.Conn, writeTimeout, readTimeout time.Duration, hooks Hooks) *netConnTransport {
	return &netConnTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		timeNow:      time.Now,
		hooks:        hooks,
	}
}

func (t *netConnTransport) Close() error { return t.conn.Close() }

// notifyDisconnected reports a connection loss observed mid-transaction.
func (t *netConnTransport) notifyDisconnected() {
	if t.hooks != nil {
		t.hooks.OnConnectedChanged(false)
	}
}

func (t *netConnTransport) writeThenRead(ctx context.Context, data []byte) ([]byte, error) {
	if err := t.conn.SetWriteDeadline(t.timeNow().Add(t.writeTimeout)); err != nil {
		t.notifyDisconnected()
		return nil, newNotConnectedError(err)
	}
	if t.hooks != nil {
		t.hooks.BeforeWrite(data)
	}
	if _, err := t.conn.Write(data); err != nil {
		t.notifyDisconnected()
		return nil, newNotConnectedError(err)
	}

	buf := make([]byte, tcpADUMaxLen+10)
	total := 0
	deadline := time.After(t.readTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrTimeoutExpired
		default:
		}

		_ = t.conn.SetReadDeadline(t.timeNow().Add(500 * time.Microsecond))
		n, err := t.conn.Read(buf[total:])
		if t.hooks != nil {
			t.hooks.AfterEachRead(buf[total:total+n], n, err)
		}
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			t.notifyDisconnected()
			return nil, newNotConnectedError(err)
		}
		total += n
		if total > tcpADUMaxLen {
			t.notifyDisconnected()
			return nil, newNotConnectedError(errors.New("received more bytes than a valid Modbus packet can contain"))
		}
		if aduLen, lenErr := packet.LooksLikeModbusTCP(buf[:total]); lenErr == nil && total >= aduLen {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	if total == 0 {
		return nil, ErrTimeoutExpired
	}
	out := make([]byte, total)
	copy(out, buf[:total])
	return out, nil
}

// serialTransport implements transport over an io.ReadWriteCloser serial
// port, for Modbus RTU: frame completion is decided by expected response
// length since RTU ADUs carry no length field, and a Flusher (when the port
// supports it) is drained after any failed transaction (spec §4.1 silent
// interval discussion).
type serialTransport struct {
	port        io.ReadWriteCloser
	isFlusher   bool
	readTimeout time.Duration
	hooks       Hooks
}

func newSerialTransport(port io.ReadWriteCloser, readTimeout time.Duration, hooks Hooks) *serialTransport {
	_, isFlusher := port.(Flusher)
	return &serialTransport{
		port:        port,
		isFlusher:   isFlusher,
		readTimeout: readTimeout,
		hooks:       hooks,
	}
}

func (t *serialTransport) Close() error { return t.port.Close() }

func (t *serialTransport) flush() error {
	if !t.isFlusher {
		return nil
	}
	return t.port.(Flusher).Flush()
}

// notifyDisconnected reports a connection loss observed mid-transaction.
func (t *serialTransport) notifyDisconnected() {
	if t.hooks != nil {
		t.hooks.OnConnectedChanged(false)
	}
}

// writeThenReadExpecting reads until a frame that passes DetectValidFrame is
// seen, a 5-byte exception response (function code with the 0x80 bit set)
// has arrived, or expectedLen bytes have arrived, whichever comes first.
func (t *serialTransport) writeThenReadExpecting(ctx context.Context, data []byte, expectedLen int) ([]byte, error) {
	if t.hooks != nil {
		t.hooks.BeforeWrite(data)
	}
	if _, err := t.port.Write(data); err != nil {
		_ = t.flush()
		t.notifyDisconnected()
		return nil, newNotConnectedError(err)
	}
	// serial devices need time to start responding; a blind read-immediately
	// loop does not reliably observe the first bytes of the reply.
	time.Sleep(30 * time.Millisecond)

	buf := make([]byte, rtuADUMaxLen+10)
	total := 0
	deadline := time.After(t.readTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			_ = t.flush()
			return nil, ErrTimeoutExpired
		default:
		}

		n, err := t.port.Read(buf[total:])
		if t.hooks != nil {
			t.hooks.AfterEachRead(buf[total:total+n], n, err)
		}
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			_ = t.flush()
			t.notifyDisconnected()
			return nil, newNotConnectedError(err)
		}
		total += n
		if total > rtuADUMaxLen {
			_ = t.flush()
			t.notifyDisconnected()
			return nil, newNotConnectedError(errors.New("received more bytes than a valid Modbus packet can contain"))
		}
		if total >= 4 && packet.DetectValidFrame(buf[:total]) {
			break
		}
		if total >= 5 && packet.IsErrorFunctionCode(buf[1]) {
			break
		}
		if total >= expectedLen {
			break
		}
	}
	if total == 0 {
		return nil, ErrTimeoutExpired
	}
	out := make([]byte, total)
	copy(out, buf[:total])
	return out, nil
}

// writeThenRead satisfies transport with a fixed expected length; RTU calls
// generally go through writeThenReadExpecting directly from Master, which
// knows each request's expected response length.
func (t *serialTransport) writeThenRead(ctx context.Context, data []byte) ([]byte, error) {
	return t.writeThenReadExpecting(ctx, data, rtuADUMaxLen)
}
