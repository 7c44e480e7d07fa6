// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfire-tools/ofexport/internal/config"
	"github.com/openfire-tools/ofexport/internal/export"
	"github.com/openfire-tools/ofexport/internal/timewindow"
)

func newSecLogsCmd() *cobra.Command {
	var (
		username  string
		limit     int
		offset    int
		startTime int64
		endTime   int64
		since     string
	)

	cmd := &cobra.Command{
		Use:   "seclogs",
		Short: "Export security audit log entries within a time window",
		Long: `Exports Openfire security audit log entries. The window comes from
--start-time/--end-time (epoch seconds) or from --since, a relative
expression like 30m, 24h, 7d or 2w counted back from now. Explicit
bounds win over --since.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.NamespaceSecurityLogs)
			if err != nil {
				return err
			}
			if !cmd.Flag("since").Changed && cfg.Export.Since != "" {
				since = cfg.Export.Since
			}
			if !cmd.Flag("start-time").Changed && cfg.Export.StartTime != 0 {
				startTime = cfg.Export.StartTime
			}
			if !cmd.Flag("end-time").Changed && cfg.Export.EndTime != 0 {
				endTime = cfg.Export.EndTime
			}
			if !cmd.Flag("limit").Changed {
				limit = cfg.Export.Limit
			}

			window, err := timewindow.Resolve(timewindow.Options{
				Since:     since,
				StartTime: startTime,
				EndTime:   endTime,
			}, time.Now())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := buildClient(cfg)
			asm := buildAssembler(ctx, cfg, client)

			summary, err := export.ExportSecurityLogs(ctx, client, asm, buildSink(cfg), export.SecLogsOptions{
				Username: username,
				Offset:   offset,
				Limit:    limit,
				Window:   window,
			})
			if err != nil {
				return fmt.Errorf("security log export failed: %w", err)
			}
			return finishRun(cmd, export.PipelineSecLogs, summary)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "filter to one username")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum entries to fetch")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entries to skip")
	cmd.Flags().Int64Var(&startTime, "start-time", 0, "window start, epoch seconds")
	cmd.Flags().Int64Var(&endTime, "end-time", 0, "window end, epoch seconds")
	cmd.Flags().StringVar(&since, "since", "", "relative window, e.g. 24h or 7d")
	return cmd
}
