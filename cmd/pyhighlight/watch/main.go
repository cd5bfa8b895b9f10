package watch

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/pyhighlight/pkg/batch"
	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/settings"
	"github.com/walteh/pyhighlight/pkg/theme"
	pywatch "github.com/walteh/pyhighlight/pkg/watch"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

type Handler struct {
	dir          string
	settingsFile string
	debounce     time.Duration
	excludeDirs  []string
}

func NewWatchCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "keep a settings file's highlight rules in sync with the python files under a directory",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringVar(&me.settingsFile, "settings-file", ".vscode/settings.json", "settings file to merge the rules into")
	cmd.Flags().DurationVar(&me.debounce, "debounce", 200*time.Millisecond, "wait this long for more changes before re-applying")
	cmd.Flags().StringSliceVar(&me.excludeDirs, "exclude-dir", pywatch.DefaultExcludeDirs, "directory name globs to skip")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.dir = "."
		if len(args) == 1 {
			me.dir = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return me.Run(ctx)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	fs := afero.NewOsFs()
	ws := workspace.New()
	store := settings.NewFileStore(fs, me.settingsFile)
	opts := config.FromContext(ctx)

	apply := func(ctx context.Context) error {
		_, err := settings.Apply(ctx, store, theme.Render(opts, ws.Tables()...))
		return err
	}

	w, err := pywatch.New(me.dir, pywatch.Options{
		ExcludeDirs: me.excludeDirs,
		Debounce:    me.debounce,
	}, func(ctx context.Context, paths []string) error {
		changed, err := pywatch.Refresh(ctx, fs, ws, paths)
		if err != nil {
			logger.Warn().Err(err).Msg("refreshing changed files")
		}
		if !changed {
			return nil
		}
		return apply(ctx)
	})
	if err != nil {
		return err
	}

	// the watch is registered before the initial scan so no edit falls between the two
	paths, err := batch.Discover(fs, w.Root(), batch.DefaultPattern)
	if err != nil {
		return multierr.Append(err, w.Close())
	}

	var initial []string
	for _, p := range paths {
		if w.Matches(p) {
			initial = append(initial, p)
		}
	}

	if _, err := pywatch.Refresh(ctx, fs, ws, initial); err != nil {
		logger.Warn().Err(err).Msg("reading python files")
	}
	if err := apply(ctx); err != nil {
		return multierr.Append(errors.Errorf("applying initial rules: %w", err), w.Close())
	}

	logger.Info().Str("dir", w.Root()).Int("files", ws.Len()).Str("settings_file", me.settingsFile).Msg("watching for changes")

	if err := w.Run(ctx); err != nil {
		return errors.Errorf("watching %s: %w", w.Root(), err)
	}
	return nil
}
