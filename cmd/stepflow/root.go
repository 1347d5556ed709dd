package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/stepflow/app"
	"github.com/kbukum/stepflow/config"
	apperrors "github.com/kbukum/stepflow/errors"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

// newApp builds the application for commands that run workflows. Tests
// replace it to inject a stub completer.
var newApp = func(ctx context.Context, cfg *app.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "stepflow",
		Short:         "Run LLM workflows defined as step graphs",
		Long:          "stepflow runs small LLM workflows, each a graph of steps sharing one record, and keeps a history of completed runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to a stepflow.yml config file")
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(opts),
		newWorkflowsCmd(),
		newHistoryCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) loadConfig() (*app.Config, error) {
	var opts []config.Option
	if o.configFile != "" {
		if _, err := os.Stat(o.configFile); err != nil {
			return nil, apperrors.Configuration("config file: " + err.Error()).WithCause(err)
		}
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err != nil {
			return nil, apperrors.Configuration("env file: " + err.Error()).WithCause(err)
		}
		opts = append(opts, config.WithEnvFile(o.envFile))
	}

	cfg, err := app.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
