package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spatialrip/internal/deps"
	"spatialrip/internal/history"
	"spatialrip/internal/runlock"
	"spatialrip/internal/stage"
	"spatialrip/internal/workspace"
)

func newStagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "stages",
		Short:       "List pipeline stages accepted by --start-stage",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(stage.All()))
			for _, s := range stage.All() {
				rows = append(rows, []string{strconv.Itoa(s.Number()), s.String(), s.Description(), yesNo(s.Optional())})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Stage", "Description", "Optional"},
				rows,
				0,
			))
			return nil
		},
	}
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools the pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(*cfg))
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Detail
				if s.Available {
					detail = s.Description
				}
				rows = append(rows, []string{s.Name, s.Command, availability(s.Available, s.Optional), detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Command", "Status", "Detail"}, rows))
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing", len(missing))
			}
			return nil
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		status string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var filter []history.Status
			if status != "" {
				filter = append(filter, history.Status(status))
			}
			records, err := store.Recent(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				size := ""
				if rec.OutputSize > 0 {
					size = humanize.IBytes(uint64(rec.OutputSize))
				}
				duration := ""
				if rec.FinishedAt != nil {
					duration = rec.Duration().Round(time.Second).String()
				}
				title := rec.Title
				if title == "" {
					title = rec.Source
				}
				rows = append(rows, []string{
					humanize.Time(rec.StartedAt),
					title,
					rec.StartStage,
					statusBadge(rec.Status),
					duration,
					size,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Title", "Start Stage", "Status", "Duration", "Size"},
				rows,
				4, 5,
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&status, "status", "", "Only show runs with this status")
	return cmd
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove work directories left in the output root by earlier runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				dirs, err := workspace.ListWorkDirs(cfg.Paths.OutputRoot)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(dirs))
				for _, d := range dirs {
					if time.Since(d.ModTime) < olderThan {
						continue
					}
					rows = append(rows, []string{d.Name, humanize.Time(d.ModTime), humanize.IBytes(uint64(d.Size))})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No stale work directories")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Directory", "Modified", "Size"}, rows, 2))
				return nil
			}

			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				if errors.Is(err, runlock.ErrHeld) {
					return errors.New("a run is in progress; not removing work directories")
				}
				return err
			}
			defer lock.Release()

			logger, err := ctx.newLogger(*cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result := workspace.CleanStale(context.WithoutCancel(cmd.Context()), cfg.Paths.OutputRoot, olderThan, logger)
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No stale work directories")
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d work directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove directories untouched for this long")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed")
	return cmd
}
