// Package lsp serves python highlighting over the Language Server Protocol.
package lsp

import (
	"context"
	"io"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/position"
	"github.com/walteh/pyhighlight/pkg/settings"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

const (
	CommandShowImports = "pyhighlight.showImports"
	CommandApplyRules  = "pyhighlight.applyRules"
)

// Server holds the state of one language server session.
type Server struct {
	id        string
	workspace *workspace.Workspace
	fs        afero.Fs

	mu       sync.Mutex
	opts     config.Options
	store    settings.Store
	encoding position.Encoding
	notifier Notifier
	stop     func()
	exited   bool
	shutdown bool
}

type Option func(*Server)

// WithStore sets where rendered rules are written. Without one the server
// falls back to .vscode/settings.json under the workspace root.
func WithStore(store settings.Store) Option {
	return func(s *Server) { s.store = store }
}

func WithOptions(opts config.Options) Option {
	return func(s *Server) { s.opts = opts }
}

func WithFs(fs afero.Fs) Option {
	return func(s *Server) { s.fs = fs }
}

// WithNotifier overrides the connection used for server to client messages.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		id:        xid.New().String(),
		workspace: workspace.New(),
		fs:        afero.NewOsFs(),
		opts:      config.Default(),
		encoding:  position.UTF16,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Workspace() *workspace.Workspace {
	return s.workspace
}

// Options returns the options currently in effect.
func (s *Server) Options() config.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *Server) Encoding() position.Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

// Methods is the dispatch table of every method the server handles.
func (s *Server) Methods() handler.Map {
	return handler.Map{
		"initialize":                       createHandler(s.Initialize),
		"initialized":                      createEmptyResultHandler(s.Initialized),
		"shutdown":                         createEmptyHandler(s.Shutdown),
		"exit":                             createEmptyHandler(s.Exit),
		"textDocument/didOpen":             createEmptyResultHandler(s.DidOpen),
		"textDocument/didChange":           createEmptyResultHandler(s.DidChange),
		"textDocument/didClose":            createEmptyResultHandler(s.DidClose),
		"textDocument/semanticTokens/full": createHandler(s.SemanticTokensFull),
		"workspace/didChangeConfiguration": createEmptyResultHandler(s.DidChangeConfiguration),
		"workspace/executeCommand":         createHandler(s.ExecuteCommand),
	}
}

// NewJRPCServer builds the jrpc2 server for this session. Requests are
// handled one at a time in arrival order. Log entries written through the
// request context are forwarded to the client as window/logMessage.
func (s *Server) NewJRPCServer(ctx context.Context) *jrpc2.Server {
	base := zerolog.Ctx(ctx).With().Str("server_id", s.id).Logger()

	var srv *jrpc2.Server
	var logCtx context.Context

	srv = jrpc2.NewServer(s.Methods(), &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		RPCLog:      &rpcLogger{logger: &base},
		NewContext: func() context.Context {
			return logCtx
		},
	})

	logCtx = ApplyLSPWriter(ctx, srv)

	s.mu.Lock()
	if s.notifier == nil {
		s.notifier = srv
	}
	s.stop = func() { go srv.Stop() }
	s.mu.Unlock()

	return srv
}

// Serve runs the server over an LSP framed stream until the client exits or
// the stream closes.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.WriteCloser) error {
	srv := s.NewJRPCServer(ctx).Start(channel.LSP(r, w))

	zerolog.Ctx(ctx).Info().Str("server_id", s.id).Msg("language server started")

	err := srv.Wait()

	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if err != nil && !exited {
		return errors.Errorf("running language server: %w", err)
	}
	return nil
}

func (s *Server) notify(ctx context.Context, method string, params any) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()

	if n == nil {
		return
	}
	if err := n.Notify(ctx, method, params); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("method", method).Msg("notifying client")
	}
}

func (s *Server) showMessage(ctx context.Context, typ MessageType, msg string) {
	s.notify(ctx, "window/showMessage", &ShowMessageParams{Type: typ, Message: msg})
}
