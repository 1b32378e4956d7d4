package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [json]",
		Short: "Search memories across graph and vector layers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.SearchInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Search(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func autoRecallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-recall [json]",
		Short: "Fast graph-only recall for per-turn context injection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.AutoRecallInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.AutoRecall(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}
