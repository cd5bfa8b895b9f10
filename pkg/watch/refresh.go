package watch

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/workspace"
)

// Refresh brings ws in line with the current content of paths: files that
// still exist are re-analyzed, files that are gone are closed. It reports
// whether any document's import bindings changed.
func Refresh(ctx context.Context, fsys afero.Fs, ws *workspace.Workspace, paths []string) (bool, error) {
	var changed bool
	var merr *multierror.Error

	for _, path := range paths {
		data, err := afero.ReadFile(fsys, path)
		if errors.Is(err, os.ErrNotExist) {
			if ws.Close(path) {
				changed = true
			}
			continue
		}
		if err != nil {
			merr = multierror.Append(merr, errors.Errorf("reading %s: %w", path, err))
			continue
		}

		c, err := ws.Open(ctx, workspace.Document{
			URI:        path,
			LanguageID: workspace.LanguageID,
			Text:       string(data),
		})
		if err != nil {
			return changed, errors.Errorf("analyzing %s: %w", path, err)
		}
		changed = changed || c
	}

	return changed, merr.ErrorOrNil()
}
