package lsp

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/position"
	"github.com/walteh/pyhighlight/pkg/semtok"
	"github.com/walteh/pyhighlight/pkg/settings"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

// SettingsFile is where rules go when no store was configured.
const SettingsFile = ".vscode/settings.json"

func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	logger := zerolog.Ctx(ctx)

	var offered []string
	if params.Capabilities.General != nil {
		offered = params.Capabilities.General.PositionEncodings
	}
	enc := position.Negotiate(offered)

	root := params.RootURI
	if root == "" {
		root = params.RootPath
	}

	s.mu.Lock()
	s.encoding = enc
	if s.store == nil && root != "" {
		s.store = settings.NewFileStore(s.fs, filepath.Join(workspace.NormalizeURI(root), SettingsFile))
	}
	if len(params.InitializationOptions) > 0 {
		opts, err := config.FromSettings(s.opts, params.InitializationOptions)
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring invalid initialization options")
		} else {
			s.opts = opts
		}
	}
	s.mu.Unlock()

	logger.Debug().
		Str("root", root).
		Strs("offered_encodings", offered).
		Str("encoding", string(enc)).
		Msg("initializing server")

	return &InitializeResult{
		Capabilities: ServerCapabilities{
			PositionEncoding: string(enc),
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncFull,
			},
			SemanticTokensProvider: &SemanticTokensOptions{
				Legend: SemanticTokensLegend{
					TokenTypes:     semtok.Legend(),
					TokenModifiers: []string{},
				},
				Full: true,
			},
			ExecuteCommandProvider: &ExecuteCommandOptions{
				Commands: []string{CommandShowImports, CommandApplyRules},
			},
		},
		ServerInfo: &ServerInfo{Name: "pyhighlight"},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *struct{}) error {
	zerolog.Ctx(ctx).Debug().Msg("server initialized")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("shutdown requested")
	return nil
}

func (s *Server) Exit(ctx context.Context) error {
	s.mu.Lock()
	s.exited = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	return nil
}
