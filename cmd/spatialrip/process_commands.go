package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spatialrip/internal/config"
	"spatialrip/internal/disc"
	"spatialrip/internal/history"
	"spatialrip/internal/logging"
	"spatialrip/internal/pipeline"
	"spatialrip/internal/services"
	"spatialrip/internal/watch"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags
	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Convert one disc, image, disc folder, or container file",
		Long: "Convert one source to an MV-HEVC spatial video.\n\n" +
			"A source is disc:N or dev:/dev/srX for an optical drive, an .iso/.img/.bin\n" +
			"image, a Blu-ray folder, or an .mts/.m2ts/.mkv file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := disc.ParseSource(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}
			runCtx, s, err := ctx.openSession(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			decide := recoveryDecider(cmd.InOrStdin(), cmd.OutOrStdout(), flags.yes)
			res, err := s.pipeline.RunWithRecovery(runCtx, src, decide)
			printResult(cmd.OutOrStdout(), res, err)
			s.notify(runCtx, res, err)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags
	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Convert every source found under a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}
			runCtx, s, err := ctx.openSession(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			var decide pipeline.Decider
			if flags.yes {
				decide = pipeline.AlwaysRecover
			}
			summary, err := s.pipeline.RunBatch(runCtx, folder, decide)
			printBatchSummary(cmd.OutOrStdout(), summary)
			if len(summary.Items) > 0 {
				s.warnPush(s.notifier.NotifyBatchCompleted(context.WithoutCancel(runCtx),
					summary.Count(history.StatusCompleted),
					summary.Count(history.StatusSkipped),
					len(summary.Failed()),
					summary.Duration,
				))
			}
			if err != nil {
				return err
			}
			if failed := len(summary.Failed()); failed > 0 {
				return fmt.Errorf("%d of %d sources failed", failed, len(summary.Items))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		flags     pipelineFlags
		discMode  bool
		device    string
		settleSec int
	)
	cmd := &cobra.Command{
		Use:   "watch [folder]",
		Short: "Convert sources as they appear in a folder or optical drive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if discMode == (len(args) == 1) {
				return errors.New("watch needs either a folder or --disc")
			}
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Watch.OpticalDevice = device
			}
			if cmd.Flags().Changed("settle") {
				cfg.Watch.SettleSeconds = settleSec
			}
			runCtx, s, err := ctx.openSession(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()

			var decide pipeline.Decider
			if flags.yes {
				decide = pipeline.AlwaysRecover
			}
			handle := watchHandler(s, decide, cmd.OutOrStdout())
			if discMode {
				watcher := watch.NewDiscWatcher(cfg.Watch.OpticalDevice, s.logger)
				if watcher == nil {
					return errors.New("watch.optical_device is not set")
				}
				return watcher.Run(runCtx, func(ctx context.Context, device string) {
					s.warnPush(s.notifier.NotifyDiscDetected(ctx, device))
					handle(ctx, "dev:"+device)
				})
			}
			folder, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
			return watch.NewFolderWatcher(folder, settle, s.logger).Run(runCtx, handle)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&discMode, "disc", false, "Watch the optical drive instead of a folder")
	cmd.Flags().StringVar(&device, "device", "", "Optical device node (default watch.optical_device)")
	cmd.Flags().IntVar(&settleSec, "settle", 0, "Seconds a file must stay unchanged before processing")
	return cmd
}

// watchHandler processes each detected source and keeps watching whatever
// the outcome.
func watchHandler(s *session, decide pipeline.Decider, out io.Writer) watch.Handler {
	return func(ctx context.Context, raw string) {
		src, err := disc.ParseSource(raw)
		if err != nil {
			logging.WarnWithContext(s.logger, "ignoring unusable source", "watch_source_invalid",
				logging.String("source", raw),
				logging.Error(err),
			)
			return
		}
		res, err := s.pipeline.RunWithRecovery(ctx, src, decide)
		printResult(out, res, err)
		s.notify(ctx, res, err)
	}
}

func printResult(out io.Writer, res pipeline.Result, err error) {
	switch res.Status {
	case history.StatusCompleted:
		fmt.Fprintf(out, "%s %s -> %s (%s)\n", statusBadge(res.Status), res.Title, res.Output, humanize.IBytes(uint64(max(res.Size, 0))))
	case history.StatusSkipped:
		fmt.Fprintf(out, "%s %s: %s already exists\n", statusBadge(res.Status), res.Title, res.Output)
	default:
		title := res.Title
		if strings.TrimSpace(title) == "" {
			title = res.Source
		}
		fmt.Fprintf(out, "%s %s: %s\n", statusBadge(res.Status), title, services.Kind(err))
	}
}

func printBatchSummary(out io.Writer, summary pipeline.BatchSummary) {
	if len(summary.Items) == 0 {
		fmt.Fprintln(out, "No sources found")
		return
	}
	rows := make([][]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		detail := item.Result.Output
		if item.Err != nil && item.Result.Status != history.StatusSkipped {
			detail = services.Kind(item.Err)
		}
		rows = append(rows, []string{item.Source, statusBadge(item.Result.Status), detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Source", "Status", "Detail"}, rows))
	fmt.Fprintf(out, "%d completed, %d skipped, %d failed in %s\n",
		summary.Count(history.StatusCompleted),
		summary.Count(history.StatusSkipped),
		len(summary.Failed()),
		summary.Duration.Round(time.Second),
	)
}
