// Package cli implements the lakex command line. Commands open the catalog
// and engines in-process from the same configuration the server uses.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lake-explorer/internal/app"
	"lake-explorer/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == outputJSON {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

type rootOptions struct {
	configPath string
	output     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "lakex",
		Short:         "Lakehouse table explorer",
		Long:          "Browse DuckLake catalogs, preview tables, run SQL and compute column statistics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("LAKEX_OUTPUT"); v != "" {
					opts.output = v
				} else {
					opts.output = defaultOutput(cmd.OutOrStdout())
				}
			}
			return validateOutputFormat(opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("LAKEX_CONFIG"), "Config file (YAML or JSON); environment variables when empty")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newNamespacesCmd(opts))
	rootCmd.AddCommand(newTablesCmd(opts))
	rootCmd.AddCommand(newOverviewCmd(opts))
	rootCmd.AddCommand(newSearchCmd(opts))
	rootCmd.AddCommand(newInfoCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// defaultOutput is table on a terminal and json otherwise.
func defaultOutput(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return outputTable
	}
	return outputJSON
}

func validateOutputFormat(output string) error {
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// loadConfig reads the configuration. The .env file in the working
// directory is applied first when present.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// openApp wires the application. Logs go to stderr so stdout stays
// machine-readable.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.logLevel == "" && cmd.Name() != "serve" {
		cfg.LogLevel = "warn"
	}
	logger := app.NewLogger(cfg, cmd.ErrOrStderr())
	return app.New(cmd.Context(), cfg, logger)
}

// withApp runs fn against a freshly opened application and closes it.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := o.openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
