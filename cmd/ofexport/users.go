// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfire-tools/ofexport/internal/config"
	"github.com/openfire-tools/ofexport/internal/export"
	"github.com/openfire-tools/ofexport/internal/logging"
	"github.com/openfire-tools/ofexport/internal/sink"
)

func newUsersCmd() *cobra.Command {
	var (
		search          string
		includeRooms    bool
		includeSessions bool
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Export user accounts, optionally joined with rooms and sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.NamespaceUsers)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := buildClient(cfg)
			asm := buildAssembler(ctx, cfg, client)

			summary, err := export.ExportUsers(ctx, client, asm, buildSink(cfg), export.UsersOptions{
				Search:          search,
				IncludeRooms:    includeRooms,
				IncludeSessions: includeSessions,
			})
			if err != nil {
				return fmt.Errorf("user export failed: %w", err)
			}
			return finishRun(cmd, export.PipelineUsers, summary)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "wildcard filter on usernames")
	cmd.Flags().BoolVar(&includeRooms, "include-rooms", false, "join per-user room memberships")
	cmd.Flags().BoolVar(&includeSessions, "include-sessions", false, "join per-user live sessions")
	return cmd
}

// finishRun logs and prints the run summary and converts delivery failures
// into a non-zero exit.
func finishRun(cmd *cobra.Command, pipeline string, summary export.Summary) error {
	logging.Info().
		Str("pipeline", pipeline).
		Int("processed", summary.Processed).
		Int("delivered", summary.Delivered).
		Int("failed", summary.Failed).
		Int("recovered", summary.Recovered).
		Msg("Export run finished")

	fmt.Fprintf(cmd.ErrOrStderr(), "%s export: %s\n", pipeline, summary)

	if !summary.Ok() {
		return fmt.Errorf("%w: %d of %d documents not delivered", sink.ErrDelivery, summary.Failed, summary.Processed)
	}
	return nil
}
