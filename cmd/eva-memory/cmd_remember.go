package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

func rememberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remember [json]",
		Short: "Store a memory through all layers with WAL safety",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.RememberInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Remember(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}
