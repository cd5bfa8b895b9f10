package settings

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/diff"
	"github.com/walteh/pyhighlight/pkg/metrics"
	"github.com/walteh/pyhighlight/pkg/theme"
)

// Change describes the effect of merging rules into a store.
type Change struct {
	Before *Blob
	After  *Blob
	// Diff is a line diff of the pretty printed blobs, empty when nothing changes.
	Diff string
}

func (c *Change) Changed() bool {
	return c.Diff != ""
}

// Plan reads the store and computes the merged blob without writing it.
func Plan(ctx context.Context, store Store, rules []theme.Rule) (*Change, error) {
	before, err := store.Read(ctx)
	if err != nil {
		return nil, errors.Errorf("reading settings: %w", err)
	}

	after := &Blob{
		TextMateRules: theme.Merge(before.TextMateRules, rules),
		Other:         before.Other,
	}

	beforeText, err := before.Pretty()
	if err != nil {
		return nil, errors.Errorf("printing current settings: %w", err)
	}
	afterText, err := after.Pretty()
	if err != nil {
		return nil, errors.Errorf("printing merged settings: %w", err)
	}

	return &Change{
		Before: before,
		After:  after,
		Diff:   diff.Text(beforeText, afterText),
	}, nil
}

// Apply merges rules into the store and writes the result when it differs.
func Apply(ctx context.Context, store Store, rules []theme.Rule) (*Change, error) {
	change, err := Plan(ctx, store, rules)
	if err != nil {
		metrics.SettingsWrites.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	if !change.Changed() {
		metrics.SettingsWrites.WithLabelValues(metrics.ResultUnchanged).Inc()
		zerolog.Ctx(ctx).Debug().Msg("highlight rules unchanged, skipping write")
		return change, nil
	}

	if err := store.Write(ctx, change.After); err != nil {
		metrics.SettingsWrites.WithLabelValues(metrics.ResultError).Inc()
		return nil, errors.Errorf("writing settings: %w", err)
	}

	metrics.SettingsWrites.WithLabelValues(metrics.ResultWritten).Inc()
	zerolog.Ctx(ctx).Info().Int("rules", len(rules)).Msg("applied highlight rules")
	return change, nil
}
