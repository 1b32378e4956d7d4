package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

func recallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall [json]",
		Short: "Retrieve full memory records by id or recency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.RecallInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Recall(cmd.Context(), in)
			if err != nil {
				emitError(err, map[string]any{"results": []any{}})
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [json]",
		Short: "Soft-delete a memory by id or by query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.ForgetInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Forget(cmd.Context(), in)
			if err != nil {
				extra := map[string]any{}
				if in.Query != "" {
					extra["query"] = in.Query
				}
				emitError(err, extra)
				return nil
			}
			emit(result)
			return nil
		},
	}
}
