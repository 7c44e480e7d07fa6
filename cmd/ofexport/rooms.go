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
)

func newRoomsCmd() *cobra.Command {
	var (
		service  string
		roomType string
		search   string
	)

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Export chat rooms with their current occupants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.NamespaceMUC)
			if err != nil {
				return err
			}
			if cmd.Flag("service").Changed {
				cfg.Export.Service = service
			}
			if cmd.Flag("type").Changed {
				cfg.Export.RoomType = roomType
			}
			if cfg.Export.RoomType != "public" && cfg.Export.RoomType != "all" {
				return fmt.Errorf("%w: --type must be public or all, got %q", errUsage, cfg.Export.RoomType)
			}

			ctx := cmd.Context()
			client := buildClient(cfg)
			asm := buildAssembler(ctx, cfg, client)

			summary, err := export.ExportRooms(ctx, client, asm, buildSink(cfg), export.RoomsOptions{
				Service:  cfg.Export.Service,
				RoomType: cfg.Export.RoomType,
				Search:   search,
			})
			if err != nil {
				return fmt.Errorf("room export failed: %w", err)
			}
			return finishRun(cmd, export.PipelineRooms, summary)
		},
	}

	cmd.Flags().StringVar(&service, "service", "conference", "group-chat service name")
	cmd.Flags().StringVar(&roomType, "type", "public", "room visibility: public or all")
	cmd.Flags().StringVar(&search, "search", "", "wildcard filter on room names")
	return cmd
}
