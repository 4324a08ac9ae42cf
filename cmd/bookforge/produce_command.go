package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookforge/internal/book"
	"bookforge/internal/logging"
	"bookforge/internal/logs"
	"bookforge/internal/objectstore"
	"bookforge/internal/pipeline"
	"bookforge/internal/workflow"
)

func newProduceCommand(ctx *commandContext) *cobra.Command {
	var (
		orderPath string
		photoPath string
		noUpload  bool
		jsonOut   bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Run every stage for an order and write its print package",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			order, err := pipeline.LoadOrder(orderPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(photoPath) != "" {
				order.Photo = photoPath
			}

			logger, err := ctx.logger(verbose)
			if err != nil {
				return err
			}
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var uploader *objectstore.Uploader
			if !noUpload {
				uploader, err = objectstore.New(cfg.Storage)
				if err != nil {
					return err
				}
			}

			producer, err := pipeline.New(cfg, pipeline.Deps{
				Generator: gen,
				Store:     store,
				Uploader:  uploader,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !jsonOut {
				producer.SetHooks(pipeline.Hooks{
					Stage: func(name string, snap workflow.Snapshot) {
						fmt.Fprintln(out, renderStatusLine(name, stateKind(snap.State), "", colorize))
					},
					Page: func(p book.Page) {
						fmt.Fprintln(out, renderStatusLine(fmt.Sprintf("spread %02d", p.Number), statusOK, "illustrated", colorize))
					},
				})
			}

			result, runErr := producer.Produce(cmd.Context(), order)

			logging.PruneRunLogs(logger, logging.RunLogRetention{
				Dir:  logs.RunLogDir(cfg.Paths.LogDir),
				Days: cfg.Logging.RetentionDays,
				Keep: runLogExclusions(result),
			})

			if jsonOut && result != nil {
				if err := writeJSON(cmd, produceJSON(result, runErr)); err != nil {
					return err
				}
				return runErr
			}
			if result != nil {
				fmt.Fprintln(out, renderStageTable(pipeline.SummarizeLogs(result.Logs), colorize))
				fmt.Fprintf(out, "Run:     %s\n", result.RunID)
				if result.RunLogPath != "" {
					fmt.Fprintf(out, "Log:     %s\n", result.RunLogPath)
				}
				if result.SalvageDir != "" {
					fmt.Fprintf(out, "Kept:    %s\n", result.SalvageDir)
				}
			}
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(out, "Archive: %s (%d document pages)\n", result.ArchivePath, result.DocumentPages)
			fmt.Fprintf(out, "SHA256:  %s\n", result.SHA256)
			if result.Upload != nil {
				fmt.Fprintf(out, "Upload:  s3://%s/%s\n", result.Upload.Bucket, result.Upload.Key)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&orderPath, "order", "o", "", "Order YAML file")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Reference photo of the child (overrides the order file)")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Skip the archive upload even when storage is enabled")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

type produceOutput struct {
	RunID         string                  `json:"runId"`
	OrderID       string                  `json:"orderId"`
	Archive       string                  `json:"archive,omitempty"`
	SHA256        string                  `json:"sha256,omitempty"`
	Bytes         int64                   `json:"bytes,omitempty"`
	RemoteKey     string                  `json:"remoteKey,omitempty"`
	DocumentPages int                     `json:"documentPages"`
	Stages        []pipeline.StageSummary `json:"stages"`
	Snapshot      workflow.Snapshot       `json:"orchestrator"`
	SalvageDir    string                  `json:"salvageDir,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

func produceJSON(result *pipeline.Result, runErr error) produceOutput {
	out := produceOutput{
		RunID:         result.RunID,
		OrderID:       result.OrderID,
		Archive:       result.ArchivePath,
		SHA256:        result.SHA256,
		Bytes:         result.Bytes,
		DocumentPages: result.DocumentPages,
		Stages:        pipeline.SummarizeLogs(result.Logs),
		Snapshot:      result.Snapshot,
		SalvageDir:    result.SalvageDir,
	}
	if result.Upload != nil {
		out.RemoteKey = result.Upload.Key
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	return out
}

func runLogExclusions(result *pipeline.Result) []string {
	if result == nil || result.RunLogPath == "" {
		return nil
	}
	return []string{result.RunLogPath}
}

func renderStageTable(stages []pipeline.StageSummary, colorize bool) string {
	table := make([][]string, 0, len(stages))
	for _, s := range stages {
		table = append(table, []string{
			s.Stage,
			colorizeStatus(string(s.Status), logStatusKind(s.Status), colorize),
			fmt.Sprintf("%d", s.Attempts),
			fmt.Sprintf("%d", s.Failures),
			formatDuration(s.Duration),
			s.LastErr,
		})
	}
	return renderTable([]column{
		leftCol("Stage"), leftCol("Status"), rightCol("Attempts"), rightCol("Failures"),
		rightCol("Duration"), leftCol("Last Error").capped(60),
	}, table)
}
