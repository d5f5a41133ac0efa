package server

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elsen-labs/modbus/packet"
	"github.com/tarm/serial"
)

// rtuBufferSize bounds the per-port accumulation buffer: 256-byte unit id +
// PDU + CRC, rounded well past the worst case to match field implementations.
const rtuBufferSize = 2094

// RTUServer answers Modbus RTU requests on a serial port (spec §4.6): bytes
// are accumulated until the silent interval between bursts signals a frame
// boundary, then DetectValidFrame decides whether a full frame is present.
type RTUServer struct {
	// Baud selects the silent-interval threshold: 4000/Baud ms, the
	// spec's approximation of the 3.5-character inter-frame gap.
	Baud int

	// Logger receives frame parse/write failures at Warn when OnErrorFunc
	// is left nil. Defaults to slog.Default().
	Logger *slog.Logger

	OnErrorFunc func(err error)
}

// silentInterval returns the inter-frame gap threshold for Baud: 4000/baud
// ms, the spec's approximation of the 3.5-character gap (spec §4.6).
func (s *RTUServer) silentInterval() time.Duration {
	baud := s.Baud
	if baud <= 0 {
		baud = 9600
	}
	ms := 4000 / float64(baud)
	return time.Duration(ms * float64(time.Millisecond))
}

// Serve reads from port until it returns a non-nil, non-timeout error (a
// closed port, typically), dispatching each assembled frame to handler.
func (s *RTUServer) Serve(port *serial.Port, handler ModbusHandler) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onErrorFunc := s.OnErrorFunc
	if onErrorFunc == nil {
		onErrorFunc = func(err error) {
			logger.Warn("modbus rtu listener error", "err", err)
		}
	}
	silentInterval := s.silentInterval()

	buf := make([]byte, rtuBufferSize)
	offset := 0
	lastRead := time.Time{}
	chunk := make([]byte, 300)

	for {
		n, err := port.Read(chunk)
		if err != nil {
			if err == io.EOF {
				return ErrServerClosed
			}
			return fmt.Errorf("modbus rtu port read error: %w", err)
		}
		if n == 0 {
			continue
		}

		now := time.Now()
		if !lastRead.IsZero() && now.Sub(lastRead) > silentInterval {
			offset = 0
		}
		lastRead = now

		if offset+n > len(buf) {
			offset = 0 // frame this large is not recoverable, resync on next burst
			continue
		}
		copy(buf[offset:], chunk[:n])
		offset += n

		frame := buf[:offset]
		if !packet.DetectValidFrame(frame) {
			continue
		}

		reqADU, err := packet.ParseRTUADU(frame)
		offset = 0
		if err != nil {
			onErrorFunc(fmt.Errorf("modbus rtu frame parse error: %w", err))
			continue
		}

		respBytes, respond := handler.Handle(reqADU, frame)
		if !respond {
			continue
		}
		if _, err := port.Write(respBytes); err != nil {
			onErrorFunc(fmt.Errorf("modbus rtu port write error: %w", err))
		}
	}
}
