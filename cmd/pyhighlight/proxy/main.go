package proxy

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// Handler connects an editor speaking LSP over stdio to a server started
// with serve-lsp --socket, so a long running server can be debugged while
// an editor is attached to it.
type Handler struct {
	socketPath string
}

func NewProxyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "proxy <socket-path>",
		Short: "relay stdin/stdout to a language server listening on a unix socket",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.socketPath = args[0]
		return me.Run(cmd.Context(), os.Stdin, os.Stdout)
	}

	return cmd
}

// Run copies in to the socket and the socket to out until either side closes.
func (me *Handler) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", me.socketPath)
	if err != nil {
		return errors.Errorf("connecting to %s: %w", me.socketPath, err)
	}
	defer conn.Close()

	zerolog.Ctx(ctx).Debug().Str("socket", me.socketPath).Msg("proxy connected")

	done := make(chan error, 2)

	go func() {
		_, err := io.Copy(conn, in)
		done <- err
	}()

	go func() {
		_, err := io.Copy(out, conn)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return errors.Errorf("relaying: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
