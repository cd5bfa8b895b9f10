package config

import "context"

type optionsKey struct{}

// WithOptions stores opts in ctx.
func WithOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// FromContext returns the options stored in ctx, or Default() when none were.
func FromContext(ctx context.Context) Options {
	if opts, ok := ctx.Value(optionsKey{}).(Options); ok {
		return opts
	}
	return Default()
}
