// Package batch analyzes python files from disk outside of an editor session.
package batch

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

// DefaultPattern matches every python file below the root.
const DefaultPattern = "**/*.py"

// Discover expands doublestar patterns relative to root and returns the
// matching regular files, sorted and without duplicates. Paths are returned
// joined with root.
func Discover(fsys afero.Fs, root string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}

	base, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", root, err)
	}
	iofs := afero.NewIOFS(afero.NewBasePathFs(fsys, base))

	seen := map[string]struct{}{}
	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid pattern %q", pattern)
		}

		matches, err := doublestar.Glob(iofs, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("expanding %q: %w", pattern, err)
		}

		for _, m := range matches {
			p := filepath.Join(root, filepath.FromSlash(m))
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	sort.Strings(out)
	return out, nil
}

type Options struct {
	// Limit bounds the number of files analyzed at once. Zero means GOMAXPROCS.
	Limit int
}

// Analyze reads and analyzes every path concurrently. Files that fail to
// read are reported in the returned error and left out of the results; the
// other files are still analyzed. Results keep the order of paths.
func Analyze(ctx context.Context, fsys afero.Fs, paths []string, opts Options) ([]*workspace.Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]*workspace.Result, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			res, err := analyzeFile(gctx, fsys, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}

	// workers never return an error, only the context can stop the group
	_ = g.Wait()

	var merr *multierror.Error
	out := make([]*workspace.Result, 0, len(paths))
	for i := range paths {
		if errs[i] != nil {
			merr = multierror.Append(merr, errs[i])
			continue
		}
		out = append(out, results[i])
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	zerolog.Ctx(ctx).Debug().Int("files", len(paths)).Int("analyzed", len(out)).Msg("batch analysis finished")

	return out, merr.ErrorOrNil()
}

func analyzeFile(ctx context.Context, fsys afero.Fs, path string) (*workspace.Result, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}

	table, spans, err := workspace.Analyze(ctx, string(data))
	if err != nil {
		return nil, errors.Errorf("analyzing %s: %w", path, err)
	}

	return &workspace.Result{
		Document: workspace.Document{
			URI:        path,
			LanguageID: workspace.LanguageID,
			Text:       string(data),
		},
		Imports: table,
		Spans:   spans,
	}, nil
}

// Tables returns the import table of every result, in order.
func Tables(results []*workspace.Result) []*pyimport.Table {
	out := make([]*pyimport.Table, 0, len(results))
	for _, r := range results {
		out = append(out, r.Imports)
	}
	return out
}

// Load discovers the files matching patterns below root and analyzes them.
// A pattern matching nothing is not an error.
func Load(ctx context.Context, fsys afero.Fs, root string, patterns []string, opts Options) ([]*workspace.Result, error) {
	paths, err := Discover(fsys, root, patterns...)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("root", root).Strs("patterns", patterns).Int("files", len(paths)).Msg("discovered python files")

	return Analyze(ctx, fsys, paths, opts)
}
