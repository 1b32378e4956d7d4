package main

import (
	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [json]",
		Short: "List active memories with pagination and sorting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.ListInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.List(cmd.Context(), in)
			if err != nil {
				emitError(err, map[string]any{"results": []any{}, "total": 0})
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [json]",
		Short: "Group memories by type, optionally filtered by topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.SummarizeInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Summarize(cmd.Context(), in)
			if err != nil {
				emitError(err, map[string]any{"groups": map[string]any{}})
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func instructionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instructions [json]",
		Short: "Return all active standing instructions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in struct {
				Project string `json:"project"`
			}
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Instructions(cmd.Context(), in.Project)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities [json]",
		Short: "List known entities and their mention counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in struct {
				Limit int `json:"limit"`
			}
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Entities(cmd.Context(), in.Limit)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}

func maintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain [json]",
		Short: "Prune old low-importance memories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in orchestrator.MaintainInput
			if err := parseJSONArg(args, &in); err != nil {
				return err
			}

			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			result, err := orch.Maintain(cmd.Context(), in)
			if err != nil {
				emitError(err, nil)
				return nil
			}
			emit(result)
			return nil
		},
	}
}
