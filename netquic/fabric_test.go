package netquic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kadcore/netquic"
)

type captureHandler struct {
	ch chan []byte
}

func (h *captureHandler) Handle(from string, payload []byte) {
	h.ch <- payload
}

func TestSendReceiveRoundTrip(t *testing.T) {
	a, err := netquic.Listen("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer a.Close()

	b, err := netquic.Listen("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer b.Close()

	h := &captureHandler{ch: make(chan []byte, 1)}
	b.Register(b.LocalAddr(), h)

	err = a.Send(context.Background(), b.LocalAddr(), []byte("ping"))
	require.NoError(t, err)

	select {
	case got := <-h.ch:
		require.Equal(t, []byte("ping"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}
