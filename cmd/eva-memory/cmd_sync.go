package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

func syncStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-start [json]",
		Short: "Begin a session: replay WAL, drain queue, load overview",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.SyncStartInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.SyncStart(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func syncEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-end [json]",
		Short: "Close the current session and reset the hot state file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in struct {
				Summary string `json:"summary"`
			}
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.SyncEnd(cmd.Context(), in.Summary)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func preCompactionFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pre-compaction-flush",
		Short: "Snapshot state files and flush the WAL before context compaction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.PreCompactionFlush(cmd.Context())
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func drainQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain-queue",
		Short: "Process pending embeddings from the offline queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			emit(orch.DrainQueue(cmd.Context()))
			return nil
		},
	}
}
