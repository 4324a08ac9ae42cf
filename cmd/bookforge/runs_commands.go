package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookforge/internal/book"
	"bookforge/internal/logs"
	"bookforge/internal/pipeline"
	"bookforge/internal/runstore"
	"bookforge/internal/workdir"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded production runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsRemoveCommand(ctx))
	runsCmd.AddCommand(newRunsLogCommand(ctx))
	runsCmd.AddCommand(newRunsPruneCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var (
		orderID  string
		statuses []string
		limit    int
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := runstore.ListFilter{OrderID: strings.TrimSpace(orderID), Limit: limit}
			for _, raw := range statuses {
				status, ok := runstore.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (pending, running, succeeded, failed)", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withStore(func(store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOut {
					if runs == nil {
						runs = []*runstore.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.OrderID,
						run.ProductID,
						colorizeStatus(string(run.Status), runStatusKind(run.Status), colorize),
						orDash(run.Stage),
						formatTimestamp(run.CreatedAt),
						run.ErrorMessage,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					leftCol("Run"), leftCol("Order"), leftCol("Product"), leftCol("Status"),
					leftCol("Stage"), leftCol("Created"), leftCol("Error").capped(50),
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "Only runs for this order id")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only runs with these statuses")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

type runDetail struct {
	Run    *runstore.Run           `json:"run"`
	Stages []pipeline.StageSummary `json:"stages"`
	Logs   []book.WorkflowLog      `json:"logs"`
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut bool
		allLogs bool
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-stage summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				entries, err := store.Logs(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				detail := runDetail{Run: run, Stages: pipeline.SummarizeLogs(entries), Logs: entries}
				if jsonOut {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Run", runStatusKind(run.Status), run.ID, colorize))
				fmt.Fprintln(out, renderStatusLine("Order", statusInfo, fmt.Sprintf("%s (%s)", run.OrderID, run.ProductID), colorize))
				if run.Title != "" {
					fmt.Fprintln(out, renderStatusLine("Title", statusInfo, run.Title, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Stage", runStatusKind(run.Status), orDash(run.Stage), colorize))
				if run.ErrorMessage != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, fmt.Sprintf("%s [%s]", truncate(run.ErrorMessage, 160), run.ErrorKind), colorize))
				}
				if run.ArchivePath != "" {
					fmt.Fprintln(out, renderStatusLine("Archive", statusOK, fmt.Sprintf("%s (%d bytes)", run.ArchivePath, run.ArchiveBytes), colorize))
					fmt.Fprintln(out, renderStatusLine("SHA256", statusInfo, run.ArchiveSHA256, colorize))
				}
				if run.RemoteKey != "" {
					fmt.Fprintln(out, renderStatusLine("Remote", statusOK, run.RemoteKey, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, formatTimestamp(run.UpdatedAt), colorize))
				if len(detail.Stages) > 0 {
					fmt.Fprintln(out, renderStageTable(detail.Stages, colorize))
				}
				if allLogs && len(entries) > 0 {
					fmt.Fprintln(out, renderLogTable(entries, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON including every log entry")
	cmd.Flags().BoolVar(&allLogs, "logs", false, "Also list every workflow log entry")
	return cmd
}

func newRunsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <run-id>...",
		Short: "Delete runs and their logs from the run store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				for _, id := range args {
					if err := store.Remove(cmd.Context(), strings.TrimSpace(id)); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed run %s\n", id)
				}
				return nil
			})
		},
	}
}

func newRunsLogCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "log <run-id>",
		Short: "Print the structured log written by one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runID := strings.TrimSpace(args[0])
			path := logs.RunLogPath(cfg.Paths.LogDir, runID)
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no log for run %s at %s", runID, path)
				}
				return err
			}

			offset := int64(-1)
			if lines <= 0 {
				offset = 0
			}
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Limit: lines})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print (0 for the whole file)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}

func newRunsPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete work directories of finished runs",
		Long: `Delete work directories of finished runs

Each run keeps a copy of its archive under work_dir/<run id>. Published
archives in output_dir and run records are not touched. Directories of runs
still pending or running are always kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *runstore.Store) error {
				active, err := store.List(cmd.Context(), runstore.ListFilter{
					Statuses: []runstore.Status{runstore.StatusPending, runstore.StatusRunning},
				})
				if err != nil {
					return err
				}
				keep := make(map[string]struct{}, len(active))
				for _, run := range active {
					keep[run.ID] = struct{}{}
				}

				out := cmd.OutOrStdout()
				if dryRun {
					stale, err := workdir.Stale(cfg.Paths.WorkDir, olderThan, keep)
					if err != nil {
						return err
					}
					for _, dir := range stale {
						fmt.Fprintf(out, "Would remove %s (%d bytes)\n", dir.Path, dir.Size)
					}
					fmt.Fprintf(out, "%d director(ies) eligible\n", len(stale))
					return nil
				}

				logger, err := ctx.logger(false)
				if err != nil {
					return err
				}
				result := workdir.CleanStale(cmd.Context(), cfg.Paths.WorkDir, olderThan, keep, logger)
				for _, dir := range result.Removed {
					fmt.Fprintf(out, "Removed %s\n", dir.Path)
				}
				fmt.Fprintf(out, "Removed %d director(ies), reclaimed %d bytes\n", len(result.Removed), result.Bytes())
				if len(result.Errors) > 0 {
					return fmt.Errorf("failed to remove %d director(ies); first: %s: %w", len(result.Errors), result.Errors[0].Path, result.Errors[0].Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Only remove directories last modified before this long ago")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List eligible directories without deleting them")
	return cmd
}

func renderLogTable(entries []book.WorkflowLog, colorize bool) string {
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		spread := "-"
		switch {
		case entry.Spread == book.CoverSpread:
			spread = "cover"
		case entry.Spread > 0:
			spread = fmt.Sprintf("%d", entry.Spread)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			entry.Stage,
			spread,
			fmt.Sprintf("%d", entry.Attempt),
			colorizeStatus(string(entry.Status), logStatusKind(entry.Status), colorize),
			formatDuration(entry.Duration),
			entry.Error,
		})
	}
	return renderTable([]column{
		rightCol("#"), leftCol("Stage"), rightCol("Spread"), rightCol("Attempt"),
		leftCol("Status"), rightCol("Duration"), leftCol("Error").capped(50),
	}, rows)
}
