package serve_lsp

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/lsp"
	"github.com/walteh/pyhighlight/pkg/settings"
)

type Handler struct {
	debug        bool
	settingsFile string
	metricsAddr  string
	socket       string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin/stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.settingsFile, "settings-file", "", "write highlight rules to this settings file instead of <workspace>/.vscode/settings.json")
	cmd.Flags().StringVar(&me.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. localhost:9464")
	cmd.Flags().StringVar(&me.socket, "socket", "", "accept sessions on this unix socket instead of stdin/stdout (see proxy)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	if me.debug {
		ctx = zerolog.Ctx(ctx).Level(zerolog.DebugLevel).WithContext(ctx)
	}

	fs := afero.NewOsFs()

	opts := []lsp.Option{
		lsp.WithOptions(config.FromContext(ctx)),
		lsp.WithFs(fs),
	}
	if me.settingsFile != "" {
		opts = append(opts, lsp.WithStore(settings.NewFileStore(fs, me.settingsFile)))
	}

	if me.metricsAddr != "" {
		stop, err := serveMetrics(ctx, me.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	if me.socket != "" {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveSocket(ctx, me.socket, opts)
	}

	if err := lsp.NewServer(opts...).Serve(ctx, os.Stdin, os.Stdout); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

// serveSocket runs one independent session per connection until ctx is done.
func serveSocket(ctx context.Context, path string, opts []lsp.Option) error {
	logger := zerolog.Ctx(ctx)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return errors.Errorf("listening on %s: %w", path, err)
	}

	context.AfterFunc(ctx, func() { ln.Close() })

	logger.Info().Str("socket", path).Msg("accepting language server sessions")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Errorf("accepting session: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			defer context.AfterFunc(ctx, func() { conn.Close() })()

			server := lsp.NewServer(opts...)
			logger.Info().Str("server_id", server.ID()).Msg("session connected")
			if err := server.Serve(ctx, conn, conn); err != nil {
				logger.Warn().Err(err).Str("server_id", server.ID()).Msg("session ended")
			}
		}()
	}
}

func serveMetrics(ctx context.Context, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Errorf("listening for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("metrics server stopped")
		}
	}()

	zerolog.Ctx(ctx).Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
