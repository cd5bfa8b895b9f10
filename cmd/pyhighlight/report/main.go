package report

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/pyhighlight/pkg/batch"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

type Handler struct {
	root string
	jobs int
}

func NewReportCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "report [globs...]",
		Short: "print the import aliases every python file binds",
	}

	cmd.Flags().StringVar(&me.root, "root", ".", "directory the globs are relative to")
	cmd.Flags().IntVar(&me.jobs, "jobs", 0, "files analyzed at once (0 = number of CPUs)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), afero.NewOsFs(), args, cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, fsys afero.Fs, globs []string, out io.Writer) error {
	results, err := batch.Load(ctx, fsys, me.root, globs, batch.Options{Limit: me.jobs})
	if results == nil && err != nil {
		return err
	}

	fmt.Fprint(out, workspace.Report(results))
	return err
}
