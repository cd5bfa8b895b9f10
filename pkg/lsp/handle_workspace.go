package lsp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/settings"
	"github.com/walteh/pyhighlight/pkg/theme"
)

// DidChangeConfiguration only reacts to the plugin's own section. Rules are
// written under a different key, so our own writes never loop back here.
func (s *Server) DidChangeConfiguration(ctx context.Context, params *DidChangeConfigurationParams) error {
	logger := zerolog.Ctx(ctx)

	raw := bytes.TrimSpace(params.Settings)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return errors.Errorf("decoding configuration: %w", err)
	}

	section, ok := sections[config.Namespace]
	if !ok {
		logger.Debug().Msg("configuration change outside our namespace")
		return nil
	}

	s.mu.Lock()
	opts, err := config.FromSettings(s.opts, section)
	changed := err == nil && opts != s.opts
	if changed {
		s.opts = opts
	}
	s.mu.Unlock()

	if err != nil {
		s.showMessage(ctx, Warning, "python highlighter: "+err.Error())
		return err
	}

	if !changed {
		return nil
	}

	logger.Debug().Interface("options", opts).Msg("options updated")
	return s.autoApply(ctx)
}

func (s *Server) ExecuteCommand(ctx context.Context, params *ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandShowImports:
		report := s.workspace.Report()
		s.showMessage(ctx, Info, report)
		return report, nil
	case CommandApplyRules:
		return s.applyRules(ctx)
	default:
		return nil, newInvalidParamsError("unknown command " + params.Command)
	}
}

func (s *Server) autoApply(ctx context.Context) error {
	if !s.Options().AutoApplySettings {
		return nil
	}
	_, err := s.applyRules(ctx)
	return err
}

// applyRules renders the rules for every open document and merges them into
// the settings store. Failures are shown to the user.
func (s *Server) applyRules(ctx context.Context) (*ApplyRulesResult, error) {
	s.mu.Lock()
	opts, store := s.opts, s.store
	s.mu.Unlock()

	if store == nil {
		zerolog.Ctx(ctx).Debug().Msg("no settings store configured, skipping rule update")
		return &ApplyRulesResult{}, nil
	}

	rules := theme.Render(opts, s.workspace.Tables()...)

	change, err := settings.Apply(ctx, store, rules)
	if err != nil {
		s.showMessage(ctx, Error, "Failed to apply python highlighting rules: "+err.Error())
		return nil, errors.Errorf("applying highlight rules: %w", err)
	}

	return &ApplyRulesResult{
		Rules:   len(rules),
		Changed: change.Changed(),
		Diff:    change.Diff,
	}, nil
}
