// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

// Package config resolves export options from layered sources. Precedence,
// lowest to highest:
//
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH)
//  3. Legacy per-command environment namespace (EXPORT_USERS_*, EXPORT_MUC_*,
//     EXPORT_SECURITY_LOGS_*)
//  4. Standardized environment namespace (OPENFIRE_*, FILEBEAT_URL, LOG_*)
//  5. Explicit overrides (CLI flags)
//
// Resolution is a pure function over an environment snapshot, so tests never
// touch the process environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks unusable configuration: malformed values, failed
// validation, unreadable config files. Callers test with errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// Config is the fully resolved option set for one export run.
type Config struct {
	Openfire OpenfireConfig `koanf:"openfire"`
	Filebeat FilebeatConfig `koanf:"filebeat"`
	Export   ExportConfig   `koanf:"export"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// OpenfireConfig locates and authenticates against the Openfire REST API
// plugin.
type OpenfireConfig struct {
	// Host is the admin console base URL, e.g. https://localhost:9091.
	Host string `koanf:"host" validate:"required,url"`

	// Secret is the REST API plugin shared secret.
	Secret string `koanf:"secret" validate:"required"`

	// Insecure disables TLS certificate verification.
	Insecure bool `koanf:"insecure"`

	// Timeout bounds each API request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// FilebeatConfig locates the document sink.
type FilebeatConfig struct {
	// URL is the Filebeat HTTP input endpoint documents are POSTed to.
	// Required unless the run is a dry run.
	URL string `koanf:"url" validate:"omitempty,url"`

	// Timeout bounds each document delivery.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// ExportConfig carries pipeline behavior shared across commands.
type ExportConfig struct {
	// Service is the group-chat service name for room exports.
	Service string `koanf:"service" validate:"required"`

	// RoomType selects which rooms the room export lists.
	RoomType string `koanf:"room_type" validate:"oneof=public all"`

	// DryRun renders documents to stdout instead of delivering them.
	DryRun bool `koanf:"dry_run"`

	// Since is a relative time window expression (e.g. "24h"), applied by
	// commands that support windowing.
	Since string `koanf:"since"`

	// StartTime and EndTime are explicit window bounds in epoch seconds.
	// Zero means unset; explicit bounds win over Since.
	StartTime int64 `koanf:"start_time" validate:"gte=0"`
	EndTime   int64 `koanf:"end_time" validate:"gte=0"`

	// Limit caps the number of security log entries fetched.
	Limit int `koanf:"limit" validate:"gte=0,lte=100000"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, the lowest precedence layer.
func defaultConfig() *Config {
	return &Config{
		Openfire: OpenfireConfig{
			Host:    "http://localhost:9090",
			Timeout: 10 * time.Second,
		},
		Filebeat: FilebeatConfig{
			Timeout: 10 * time.Second,
		},
		Export: ExportConfig{
			Service:  "conference",
			RoomType: "public",
			Limit:    100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the resolved configuration against the struct tags and
// wraps the first failure in ErrConfiguration. A live run needs a sink URL;
// only dry runs may omit it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: field %s failed %q validation", ErrConfiguration, first.Namespace(), first.Tag())
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if !c.Export.DryRun && c.Filebeat.URL == "" {
		return fmt.Errorf("%w: filebeat URL is required unless dry_run is set", ErrConfiguration)
	}
	return nil
}
