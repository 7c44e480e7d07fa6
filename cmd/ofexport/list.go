// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openfire-tools/ofexport/internal/config"
	"github.com/openfire-tools/ofexport/internal/format"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Inspect server inventory without exporting",
	}
	cmd.PersistentFlags().String("output", format.Table, "output format: table, csv or json")
	cmd.AddCommand(newListUsersCmd(), newListRoomsCmd())
	return cmd
}

func newListUsersCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.NamespaceUsers)
			if err != nil {
				return err
			}

			users, err := buildClient(cfg).ListUsers(cmd.Context(), search)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{u.Username, u.Name, u.Email})
			}
			output := cmd.Flag("output").Value.String()
			return format.Render(cmd.OutOrStdout(), output, []string{"username", "name", "email"}, rows)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "wildcard filter on usernames")
	return cmd
}

func newListRoomsCmd() *cobra.Command {
	var (
		service  string
		roomType string
	)

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List chat rooms on a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, config.NamespaceMUC)
			if err != nil {
				return err
			}
			if cmd.Flag("service").Changed {
				cfg.Export.Service = service
			}

			rooms, err := buildClient(cfg).ListRooms(cmd.Context(), cfg.Export.Service, roomType, "")
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}

			rows := make([][]string, 0, len(rooms))
			for _, r := range rooms {
				rows = append(rows, []string{
					r.RoomName,
					r.NaturalName,
					cfg.Export.Service,
					strconv.FormatBool(r.Persistent),
					strconv.FormatBool(r.PublicRoom),
				})
			}
			output := cmd.Flag("output").Value.String()
			return format.Render(cmd.OutOrStdout(), output,
				[]string{"room", "natural_name", "service", "persistent", "public"}, rows)
		},
	}

	cmd.Flags().StringVar(&service, "service", "conference", "group-chat service name")
	cmd.Flags().StringVar(&roomType, "type", "all", "room visibility: public or all")
	return cmd
}
