package serve_lsp

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/pyhighlight/pkg/lsp"
	"github.com/walteh/pyhighlight/pkg/settings"
)

func TestServeSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "lsp.sock")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- serveSocket(serveCtx, socketPath, []lsp.Option{lsp.WithStore(&settings.MemoryStore{})})
	}()

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)

	client := jrpc2.NewClient(channel.LSP(conn, conn), nil)
	defer client.Close()

	var res lsp.InitializeResult
	require.NoError(t, client.CallResult(ctx, "initialize", &lsp.InitializeParams{}, &res))
	assert.Equal(t, "utf-16", res.Capabilities.PositionEncoding)

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("socket server did not stop")
	}
}
