package main

import (
	"github.com/spf13/cobra"
)

func initSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create graph constraints and fulltext indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			g := newGraphStore(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			if err := g.EnsureSchema(cmd.Context()); err != nil {
				emitError(err, nil)
				return nil
			}
			emit(map[string]any{"schema": "ok"})
			return nil
		},
	}
}
