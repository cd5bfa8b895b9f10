package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/position"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

func (s *Server) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	doc := params.TextDocument
	zerolog.Ctx(ctx).Debug().Str("uri", doc.URI).Str("language", doc.LanguageID).Msg("document opened")

	changed, err := s.workspace.Open(ctx, workspace.Document{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    doc.Version,
		Text:       doc.Text,
	})
	return s.afterAnalysis(ctx, changed, err)
}

func (s *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	zerolog.Ctx(ctx).Debug().Str("uri", uri).Int32("version", params.TextDocument.Version).Msg("document changed")

	current, ok := s.workspace.Get(uri)
	if !ok || len(params.ContentChanges) == 0 {
		return nil
	}

	text := current.Text
	enc := s.Encoding()
	for _, change := range params.ContentChanges {
		if change.Range == nil {
			text = change.Text
			continue
		}
		text = position.Splice(text, *change.Range, change.Text, enc)
	}

	changed, err := s.workspace.Change(ctx, uri, params.TextDocument.Version, text)
	return s.afterAnalysis(ctx, changed, err)
}

func (s *Server) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", params.TextDocument.URI).Msg("document closed")

	if s.workspace.Close(params.TextDocument.URI) {
		return s.autoApply(ctx)
	}
	return nil
}

// afterAnalysis treats a cancelled analysis as a no-op and re-applies the
// rules when the document's bindings changed.
func (s *Server) afterAnalysis(ctx context.Context, bindingsChanged bool, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("analysis cancelled")
			return nil
		}
		return errors.Errorf("analyzing document: %w", err)
	}

	if bindingsChanged {
		return s.autoApply(ctx)
	}
	return nil
}
