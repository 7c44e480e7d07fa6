// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package format renders tabular output for the list subcommands in table,
// CSV or JSON form.
package format

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// Output formats accepted by the list subcommands.
const (
	Table = "table"
	CSV   = "csv"
	JSON  = "json"
)

// ErrUnknownFormat marks an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Render writes rows under headers to w in the requested format. JSON output
// is an array of objects keyed by header name.
func Render(w io.Writer, format string, headers []string, rows [][]string) error {
	switch format {
	case Table:
		return renderTable(w, headers, rows)
	case CSV:
		return renderCSV(w, headers, rows)
	case JSON:
		return renderJSON(w, headers, rows)
	default:
		return fmt.Errorf("%w: %q (want table, csv or json)", ErrUnknownFormat, format)
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func renderCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, headers []string, rows [][]string) error {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		records = append(records, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
