package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

// updateCmd builds the update command; "evolve" is the historical alias
// kept for callers of earlier releases.
func updateCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [json]",
		Short: "Update an existing memory's content or metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.UpdateInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Update(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}
