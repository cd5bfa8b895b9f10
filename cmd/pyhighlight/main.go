package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/pyhighlight/cmd/pyhighlight/analyze"
	"github.com/walteh/pyhighlight/cmd/pyhighlight/apply"
	"github.com/walteh/pyhighlight/cmd/pyhighlight/proxy"
	"github.com/walteh/pyhighlight/cmd/pyhighlight/report"
	serve_lsp "github.com/walteh/pyhighlight/cmd/pyhighlight/serve-lsp"
	"github.com/walteh/pyhighlight/cmd/pyhighlight/watch"
	"github.com/walteh/pyhighlight/pkg/config"
	"github.com/walteh/pyhighlight/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var configFile, logLevel string

	rootCmd := &cobra.Command{
		Use:           "pyhighlight",
		Short:         "semantic highlighting for python naming conventions and numeric libraries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "load options from a yaml, hcl, toml or json file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		// stdout carries the protocol for serve-lsp, so logs always go to stderr
		ctx := logging.WithConsole(cmd.Context(), os.Stderr, level)

		opts := config.Default()
		if configFile != "" {
			opts, err = config.Load(afero.NewOsFs(), configFile)
			if err != nil {
				return err
			}
		}

		cmd.SetContext(config.WithOptions(ctx, opts))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())
	rootCmd.AddCommand(analyze.NewAnalyzeCommand())
	rootCmd.AddCommand(report.NewReportCommand())
	rootCmd.AddCommand(apply.NewApplyCommand())
	rootCmd.AddCommand(watch.NewWatchCommand())
	rootCmd.AddCommand(proxy.NewProxyCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
