package apply

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/pkg/batch"
	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/diff"
	"github.com/walteh/pyhighlight/pkg/settings"
	"github.com/walteh/pyhighlight/pkg/theme"
)

type Handler struct {
	root         string
	settingsFile string
	dryRun       bool
	jobs         int
}

func NewApplyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "apply [globs...]",
		Short: "write highlight rules for the aliases used by python files into a settings file",
	}

	cmd.Flags().StringVar(&me.root, "root", ".", "directory the globs are relative to")
	cmd.Flags().StringVar(&me.settingsFile, "settings-file", ".vscode/settings.json", "settings file to merge the rules into")
	cmd.Flags().BoolVar(&me.dryRun, "dry-run", false, "print the change instead of writing it")
	cmd.Flags().IntVar(&me.jobs, "jobs", 0, "files analyzed at once (0 = number of CPUs)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), afero.NewOsFs(), args, cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, fsys afero.Fs, globs []string, out io.Writer) error {
	results, err := batch.Load(ctx, fsys, me.root, globs, batch.Options{Limit: me.jobs})
	if err != nil {
		// rules rendered from a partial set of files would drop aliases
		return errors.Errorf("loading python files: %w", err)
	}

	rules := theme.Render(config.FromContext(ctx), batch.Tables(results)...)
	store := settings.NewFileStore(fsys, me.settingsFile)

	if me.dryRun {
		change, err := settings.Plan(ctx, store, rules)
		if err != nil {
			return err
		}
		if !change.Changed() {
			fmt.Fprintf(out, "%s is up to date\n", me.settingsFile)
			return nil
		}

		before, err := change.Before.Pretty()
		if err != nil {
			return err
		}
		after, err := change.After.Pretty()
		if err != nil {
			return err
		}
		fmt.Fprint(out, diff.Annotated(before, after))
		return nil
	}

	change, err := settings.Apply(ctx, store, rules)
	if err != nil {
		return err
	}

	if change.Changed() {
		fmt.Fprintf(out, "wrote %d rules from %d files to %s\n", len(rules), len(results), me.settingsFile)
	} else {
		fmt.Fprintf(out, "%s is up to date\n", me.settingsFile)
	}
	return nil
}
