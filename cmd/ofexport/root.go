// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package main

import (
	"context"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfire-tools/ofexport/internal/config"
	"github.com/openfire-tools/ofexport/internal/export"
	"github.com/openfire-tools/ofexport/internal/logging"
	"github.com/openfire-tools/ofexport/internal/openfire"
	"github.com/openfire-tools/ofexport/internal/sink"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ofexport",
		Short:         "Export Openfire administrative data to a log shipper",
		Long: `ofexport pulls users, chat rooms and security audit logs from the
Openfire REST API plugin and ships them as self-contained JSON documents
to a Filebeat HTTP input, or renders them locally with --dry-run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("host", "", "Openfire admin console base URL (e.g. https://localhost:9091)")
	root.PersistentFlags().String("token", "", "REST API shared secret")
	root.PersistentFlags().Bool("insecure", false, "skip TLS certificate verification")
	root.PersistentFlags().String("url", "", "Filebeat HTTP input URL documents are delivered to")
	root.PersistentFlags().Bool("dry-run", false, "render documents to stdout instead of delivering")
	root.PersistentFlags().Duration("timeout", 0, "per-request timeout (e.g. 30s)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: json or console")

	root.AddCommand(newUsersCmd(), newRoomsCmd(), newSecLogsCmd(), newListCmd())
	return root
}

// resolveConfig layers CLI flags over the environment for one command.
// Only flags the user actually set become explicit overrides.
func resolveConfig(cmd *cobra.Command, namespace string) (*config.Config, error) {
	explicit := map[string]interface{}{}
	override := func(flag, path string) {
		if f := cmd.Flag(flag); f != nil && f.Changed {
			explicit[path] = f.Value.String()
		}
	}
	override("host", "openfire.host")
	override("token", "openfire.secret")
	override("insecure", "openfire.insecure")
	override("url", "filebeat.url")
	override("dry-run", "export.dry_run")
	override("timeout", "openfire.timeout")
	override("log-level", "logging.level")
	override("log-format", "logging.format")

	cfg, err := config.Resolve(config.EnvSnapshot(), namespace, explicit)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return cfg, nil
}

// buildClient constructs the breaker-wrapped API client for cfg.
func buildClient(cfg *config.Config) *openfire.CircuitBreakerClient {
	return openfire.NewCircuitBreakerClient(openfire.NewClient(openfire.Config{
		BaseURL:            cfg.Openfire.Host,
		Secret:             cfg.Openfire.Secret,
		Timeout:            cfg.Openfire.Timeout,
		InsecureSkipVerify: cfg.Openfire.Insecure,
	}))
}

// buildAssembler stamps documents with the server host and, best effort, the
// XMPP domain from the xmpp.domain system property. Discovery failure is
// logged at debug and the domain field is simply omitted.
func buildAssembler(ctx context.Context, cfg *config.Config, props openfire.SystemProperties) *export.Assembler {
	server := cfg.Openfire.Host
	if u, err := url.Parse(cfg.Openfire.Host); err == nil && u.Hostname() != "" {
		server = u.Hostname()
	}

	domain := ""
	if value, err := props.GetSystemProperty(ctx, "xmpp.domain"); err == nil {
		domain = value
	} else {
		logging.Debug().Err(err).Msg("xmpp.domain discovery failed, omitting domain field")
	}

	return export.NewAssembler(server, domain)
}

// buildSink picks the dry-run or live sink.
func buildSink(cfg *config.Config) sink.Sink {
	if cfg.Export.DryRun {
		return sink.NewDryRunSink(os.Stdout)
	}
	return sink.NewHTTPSink(sink.HTTPSinkConfig{
		URL:                cfg.Filebeat.URL,
		Timeout:            cfg.Filebeat.Timeout,
		InsecureSkipVerify: cfg.Openfire.Insecure,
	})
}
