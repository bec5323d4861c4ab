package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

func TestServer_ShutdownEndsCartStreams(t *testing.T) {
	cart := &cartMock{updates: make(chan []domain.LineItem)}
	srv := NewServer("", newTestRouter(cart, &controllerMock{}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	client := &http.Client{}
	resp, err := client.Get("http://" + ln.Addr().String() + "/api/v1/cart/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-serveErr, http.ErrServerClosed)

	_, err = io.ReadAll(resp.Body)
	assert.NoError(t, err)
}
