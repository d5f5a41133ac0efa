package server

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"testing"
	"time"

	modbus "github.com/elsen-labs/modbus"
	"github.com/stretchr/testify/assert"
)

func TestRequestToServer(t *testing.T) {
	banks := NewBanks(0, 0, 16, 0)
	banks.HoldingRegisters.Set(10, []int16{1, int16(0x0102)})
	dispatcher := NewDispatcher(1, banks)

	s := Server{}
	serverAddrCh := make(chan string)
	s.OnServeFunc = func(addr net.Addr) {
		serverAddrCh <- addr.String()
	}

	tCtx, tCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer tCancel()
	ctx, cancel := signal.NotifyContext(tCtx, os.Kill, os.Interrupt)
	defer cancel()

	// we start the server and listen for incoming connections/data in separate goroutine. ListenAndServe is blocking call.
	go func() {
		err := s.ListenAndServe(ctx, "localhost:5020", TCPHandler{dispatcher})
		if err != nil && !errors.Is(err, ErrServerClosed) {
			assert.NoError(t, err)
		}
	}()

	select {
	case <-ctx.Done():
		return
	case serverAddr := <-serverAddrCh: // wait for server to "start"
		registers, err := doRequest(ctx, serverAddr)
		assert.NoError(t, err)
		assert.Equal(t, []int16{1, int16(0x0102)}, registers)
	}

	graceful, gCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer gCancel()
	if err := s.Shutdown(graceful); err != nil {
		assert.NoError(t, err)
	}
}

func doRequest(ctx context.Context, serverAddress string) ([]int16, error) {
	master := modbus.NewTCPMaster(modbus.MasterConfig{
		WriteTimeout: 2 * time.Second,
		ReadTimeout:  2 * time.Second,
	})
	if err := master.Connect(ctx, serverAddress); err != nil {
		return nil, err
	}
	defer master.Close()

	return master.ReadHoldingRegisters(ctx, 1, 10, 2)
}

func TestServer_Addr(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	if !assert.NoError(t, err) {
		return
	}
	defer listener.Close()

	lAddr := listener.Addr().String()

	s := Server{
		listener: listener,
	}
	assert.Equal(t, lAddr, s.Addr().String())
}
