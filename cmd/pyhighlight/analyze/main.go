package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/pyhighlight/pkg/batch"
	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/logging"
	"github.com/walteh/pyhighlight/pkg/position"
	"github.com/walteh/pyhighlight/pkg/pyimport"
	"github.com/walteh/pyhighlight/pkg/semtok"
	"github.com/walteh/pyhighlight/pkg/workspace"
)

type Handler struct {
	root     string
	format   string // text, json, yaml
	columns  string
	jobs     int
	colorize bool
}

func NewAnalyzeCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "analyze [globs...]",
		Short: "classify the identifiers of python files",
	}

	cmd.Flags().StringVar(&me.root, "root", ".", "directory the globs are relative to")
	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&me.columns, "columns", string(position.Grapheme), "column unit: utf-8, utf-16, utf-32 or grapheme")
	cmd.Flags().IntVar(&me.jobs, "jobs", 0, "files analyzed at once (0 = number of CPUs)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.colorize = logging.IsTerminal(os.Stdout)
		return me.Run(cmd.Context(), afero.NewOsFs(), args, cmd.OutOrStdout())
	}

	return cmd
}

// Token is one highlighted identifier. Line and Column are 1-based.
type Token struct {
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Length   int    `json:"length" yaml:"length"`
	Category string `json:"category" yaml:"category"`
	Text     string `json:"text" yaml:"text"`
}

type File struct {
	Path   string  `json:"path" yaml:"path"`
	Tokens []Token `json:"tokens" yaml:"tokens"`
}

func (me *Handler) Run(ctx context.Context, fsys afero.Fs, globs []string, out io.Writer) error {
	enc, err := position.ParseEncoding(me.columns)
	if err != nil {
		return err
	}

	results, loadErr := batch.Load(ctx, fsys, me.root, globs, batch.Options{Limit: me.jobs})
	if results == nil && loadErr != nil {
		return loadErr
	}

	files := Files(results, config.FromContext(ctx), enc)

	if err := me.write(out, files); err != nil {
		return err
	}

	// files that could be read were still printed
	return loadErr
}

// Files converts analysis results to printable tokens, keeping only the
// categories opts enables.
func Files(results []*workspace.Result, opts config.Options, enc position.Encoding) []File {
	files := make([]File, 0, len(results))
	for _, res := range results {
		lines := pyimport.SplitLines(res.Text)
		f := File{Path: res.URI, Tokens: []Token{}}
		for _, sp := range semtok.Filter(res.Spans, opts.Enabled) {
			line := lines[sp.Line]
			f.Tokens = append(f.Tokens, Token{
				Line:     sp.Line + 1,
				Column:   position.Column(line, sp.Start, enc) + 1,
				Length:   position.Width(sp.Text(line), enc),
				Category: sp.Category.String(),
				Text:     sp.Text(line),
			})
		}
		files = append(files, f)
	}
	return files
}

func (me *Handler) write(out io.Writer, files []File) error {
	switch me.format {
	case "json":
		e := json.NewEncoder(out)
		e.SetIndent("", "  ")
		if err := e.Encode(files); err != nil {
			return errors.Errorf("encoding json: %w", err)
		}
		return nil
	case "yaml":
		e := yaml.NewEncoder(out)
		e.SetIndent(2)
		if err := e.Encode(files); err != nil {
			return errors.Errorf("encoding yaml: %w", err)
		}
		return e.Close()
	case "text", "":
		me.writeText(out, files)
		return nil
	default:
		return errors.Errorf("unknown format %q (use text, json or yaml)", me.format)
	}
}

var categoryColors = map[string][]color.Attribute{
	semtok.CamelCaseVar.String():    {color.FgCyan},
	semtok.PascalCaseVar.String():   {color.FgYellow, color.Bold},
	semtok.NumpyModule.String():     {color.FgHiBlue},
	semtok.NumpyFunction.String():   {color.FgBlue},
	semtok.PandasModule.String():    {color.FgHiMagenta},
	semtok.PandasFunction.String():  {color.FgMagenta, color.Italic},
	semtok.PandasClass.String():     {color.FgMagenta, color.Bold},
	semtok.LibraryModule.String():   {color.FgHiYellow},
	semtok.LibraryFunction.String(): {color.FgYellow},
}

func (me *Handler) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if me.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (me *Handler) writeText(out io.Writer, files []File) {
	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, me.paint(f.Path, color.Bold))
		if len(f.Tokens) == 0 {
			fmt.Fprintln(out, "  (no tokens)")
			continue
		}
		for _, t := range f.Tokens {
			fmt.Fprintf(out, "  %4d:%-4d %-16s %s\n", t.Line, t.Column, t.Category, me.paint(t.Text, categoryColors[t.Category]...))
		}
	}
}
