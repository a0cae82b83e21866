// Package cli implements enrolctl, which answers dashboard intents offline against a
// dataset source without starting the service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/config"
	"github.com/RishithDsouza/Hackethon/internal/server"
)

// Version is reported by --version.
var Version = "dev"

type app struct {
	configPath string
	source     string
	path       string
	dsn        string
	table      string
	encoding   string
	delimiter  string
	output     string
	verbose    bool
	stdout     io.Writer
	stderr     io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "enrolctl",
		Short:         "Query enrolment service-usage analytics from the command line",
		Long:          "enrolctl loads a dataset snapshot (CSV, SQLite or Postgres) and answers the same intents the HTTP service serves.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath, "path to the configuration file")
	cmd.PersistentFlags().StringVar(&a.source, "source", "", "dataset source: csv, sqlite or postgres (overrides config)")
	cmd.PersistentFlags().StringVar(&a.path, "path", "", "CSV or SQLite file (overrides config)")
	cmd.PersistentFlags().StringVar(&a.dsn, "dsn", "", "database connection string (overrides config)")
	cmd.PersistentFlags().StringVar(&a.table, "table", "", "table holding the usage rows (overrides config)")
	cmd.PersistentFlags().StringVar(&a.encoding, "encoding", "", "CSV character set, e.g. windows-1252 (overrides config)")
	cmd.PersistentFlags().StringVar(&a.delimiter, "delimiter", "", "CSV field separator (overrides config)")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log dataset loading to stderr")

	cmd.AddCommand(
		newRunCmd(a),
		newIntentsCmd(a),
		newInfoCmd(a),
	)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var state, district string
	cmd := &cobra.Command{
		Use:   "run <intent>",
		Short: "Run one intent and print its result",
		Example: `  enrolctl run kpis --state Karnataka
  enrolctl run forecast --state Karnataka --district Mysuru -o yaml
  enrolctl run bar-data --path data/service_usage.csv`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			names := make([]string, 0, len(analytics.Intents()))
			for _, i := range analytics.Intents() {
				names = append(names, string(i))
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := analytics.ParseIntent(args[0])
			if err != nil {
				return fmt.Errorf("%w (see 'enrolctl intents')", err)
			}
			var q analytics.Query
			if cmd.Flags().Changed("state") {
				q.State = &state
			}
			if cmd.Flags().Changed("district") {
				q.District = &district
			}
			return a.run(cmd.Context(), intent, q)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "filter on state")
	cmd.Flags().StringVar(&district, "district", "", "filter on district")
	return cmd
}

func newIntentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "intents",
		Short: "List the intents run accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, i := range analytics.Intents() {
				fmt.Fprintln(a.stdout, i)
			}
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the dataset snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), analytics.IntentInfo, analytics.Query{})
		},
	}
}

func (a *app) run(ctx context.Context, intent analytics.Intent, q analytics.Query) error {
	format := strings.ToLower(a.output)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported output format %q (want json or yaml)", a.output)
	}

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if a.verbose {
		log = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(a.stderr),
			zapcore.DebugLevel,
		))
	}

	engine, err := server.LoadEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	result, err := engine.Run(ctx, intent, q)
	if err != nil {
		return err
	}
	return a.print(format, result)
}

func (a *app) loadConfig(ctx context.Context) (*config.Config, error) {
	mgr, err := config.NewConfigManager(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(ctx); err != nil {
		return nil, err
	}
	cfg := mgr.Get(ctx)

	if a.source != "" {
		cfg.Dataset.Source = strings.ToLower(a.source)
	}
	if a.path != "" {
		cfg.Dataset.Path = a.path
	}
	if a.dsn != "" {
		cfg.Dataset.DSN = a.dsn
	}
	if a.table != "" {
		cfg.Dataset.Table = a.table
	}
	if a.encoding != "" {
		cfg.Dataset.Encoding = a.encoding
	}
	if a.delimiter != "" {
		cfg.Dataset.Delimiter = a.delimiter
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

func (a *app) print(format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
