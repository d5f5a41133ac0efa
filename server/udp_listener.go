package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/elsen-labs/modbus/packet"
)

// UDPServer answers Modbus UDP requests (spec §4.6): each datagram carries
// exactly one MBAP-framed ADU, so unlike the TCP server there is no
// multi-read assembly - a single ReadFromUDP call already holds a whole
// request (or garbage, which is dropped).
type UDPServer struct {
	isShutdown bool

	// ReadBufferSize bounds a single datagram read; a Modbus TCP/UDP ADU
	// tops out at 7+253 bytes so the default comfortably covers it.
	ReadBufferSize int

	// Logger receives read/write/parse failures at Warn when OnErrorFunc is
	// left nil. Defaults to slog.Default().
	Logger *slog.Logger

	OnServeFunc func(addr net.Addr)
	OnErrorFunc func(err error)
}

// ErrUDPServerClosed is returned by ListenAndServe after Close stops the listener.
var ErrUDPServerClosed = errors.New("modbus udp server closed")

// ListenAndServe opens a UDP socket on address and answers datagrams with
// handler until ctx is cancelled.
func (s *UDPServer) ListenAndServe(ctx context.Context, address string, handler ModbusHandler) error {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("modbus udp listener address error: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("modbus udp listener creation error: %w", err)
	}
	defer conn.Close()

	if s.OnServeFunc != nil {
		s.OnServeFunc(conn.LocalAddr())
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onErrorFunc := s.OnErrorFunc
	if onErrorFunc == nil {
		onErrorFunc = func(err error) {
			logger.Warn("modbus udp listener error", "err", err)
		}
	}

	bufSize := s.ReadBufferSize
	if bufSize <= 0 {
		bufSize = 300
	}

	go func() {
		<-ctx.Done()
		s.isShutdown = true
		_ = conn.Close()
	}()

	buf := make([]byte, bufSize)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if s.isShutdown {
				return ErrUDPServerClosed
			}
			onErrorFunc(fmt.Errorf("modbus udp read error: %w", err))
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		aduLen, err := packet.LooksLikeModbusTCP(frame)
		if err != nil || aduLen != n {
			onErrorFunc(fmt.Errorf("modbus udp datagram from %s is not a well-formed ADU: %w", peer, err))
			continue
		}
		reqADU, err := packet.ParseTCPADU(frame)
		if err != nil {
			onErrorFunc(fmt.Errorf("modbus udp datagram from %s failed to parse: %w", peer, err))
			continue
		}

		respBytes, respond := handler.Handle(reqADU, frame)
		if !respond {
			continue
		}
		if _, err := conn.WriteToUDP(respBytes, peer); err != nil {
			onErrorFunc(fmt.Errorf("modbus udp write to %s error: %w", peer, err))
		}
	}
}
