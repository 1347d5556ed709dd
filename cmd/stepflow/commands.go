package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/version"
	"github.com/kbukum/stepflow/workflow"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run <workflow> [subject]",
		Short: "Run a workflow and print its report",
		Example: `  stepflow run hello Ada
  stepflow run research "Research the red panda"
  stepflow run scrape "https://example.com/stats#standings"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var subject string
			if len(args) == 2 {
				subject = args[1]
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))

			run, err := a.Run(cmd.Context(), args[0], subject)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.Report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run as JSON")
	return cmd
}

func newWorkflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List workflows and their transition tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for i, w := range workflow.Catalog() {
				info, err := w.Inspect()
				if err != nil {
					return apperrors.PipelineDefinition(err)
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				writeWorkflow(out, info)
			}
			return nil
		},
	}
}

func writeWorkflow(out io.Writer, info workflow.Info) {
	fmt.Fprintf(out, "%s: %s\n", info.Name, info.Description)
	fmt.Fprintf(out, "  entry: %s\n", info.Entry)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  FROM\tCONDITION\tBRANCH\tTO")
	for _, e := range info.Edges {
		cond, branch := e.Condition, e.Branch
		if cond == "" {
			cond, branch = "-", "-"
		}
		to := e.To
		if to == graph.End {
			to = "END"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.From, cond, branch, to)
	}
	_ = tw.Flush()
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return apperrors.InvalidInput("limit", "must be at least 1")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return apperrors.ServiceUnavailable("history").
					WithDetail("hint", "set history.enabled to true")
			}
			if err := cfg.History.Validate(); err != nil {
				return apperrors.Configuration(err.Error())
			}
			logger.Init(cfg.Logging)

			store, err := history.Open(cmd.Context(), cfg.History, logger.GetGlobalLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func writeRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORKFLOW\tSUBJECT\tSTEPS\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Workflow, orDash(r.Subject), r.Steps,
			r.Duration().Round(time.Millisecond), r.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))
			return a.Serve(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "stepflow %s\n", info)
			if info.GoVersion != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "go %s\n", info.GoVersion)
			}
		},
	}
}
