package lsp

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/walteh/pyhighlight/pkg/position"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
)

func (s *Server) SemanticTokensFull(ctx context.Context, params *SemanticTokensParams) (*SemanticTokens, error) {
	logger := zerolog.Ctx(ctx)

	res, ok := s.workspace.Get(params.TextDocument.URI)
	if !ok {
		logger.Debug().Str("uri", params.TextDocument.URI).Msg("semantic tokens for untracked document")
		return &SemanticTokens{Data: []uint32{}}, nil
	}

	opts := s.Options()
	spans := semtok.Filter(res.Spans, opts.Enabled)

	data := EncodeTokens(spans, pyimport.SplitLines(res.Text), s.Encoding())
	logger.Debug().Int("spans", len(spans)).Int("data_length", len(data)).Msg("encoded semantic tokens")

	return &SemanticTokens{
		ResultID: uuid.NewString(),
		Data:     data,
	}, nil
}

// EncodeTokens converts spans to the LSP relative encoding
// [deltaLine, deltaStart, length, tokenType, tokenModifiers].
//
// LSP tokens must not overlap. When spans share a start the highest category
// wins, so a pandas class beats the PascalCase match on the same name, and a
// span starting inside the previous token is dropped.
func EncodeTokens(spans []semtok.Span, lines []string, enc position.Encoding) []uint32 {
	sorted := make([]semtok.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Category > sorted[j].Category
	})

	data := make([]uint32, 0, len(sorted)*5)
	var prevLine, prevChar uint32
	lastLine, lastEnd := -1, 0

	for _, sp := range sorted {
		if sp.Line < 0 || sp.Line >= len(lines) {
			continue
		}
		if sp.Line == lastLine && sp.Start < lastEnd {
			continue
		}

		text := lines[sp.Line]
		if sp.End() > len(text) {
			continue
		}

		line := uint32(sp.Line)
		char := uint32(position.Column(text, sp.Start, enc))
		length := uint32(position.Width(text[sp.Start:sp.End()], enc))

		deltaLine := line - prevLine
		deltaChar := char
		if deltaLine == 0 {
			deltaChar = char - prevChar
		}

		data = append(data, deltaLine, deltaChar, length, uint32(sp.Category), 0)

		prevLine, prevChar = line, char
		lastLine, lastEnd = sp.Line, sp.End()
	}

	return data
}
