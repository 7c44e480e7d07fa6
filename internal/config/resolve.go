// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable that points at an optional
// YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// Legacy per-command namespaces. Each export command historically read its
// own prefixed variables; they are honored below the standardized names.
const (
	NamespaceUsers        = "EXPORT_USERS"
	NamespaceMUC          = "EXPORT_MUC"
	NamespaceSecurityLogs = "EXPORT_SECURITY_LOGS"
)

// legacySuffixes maps legacy variable suffixes to koanf config paths. The
// full legacy name is <namespace>_<suffix>, e.g. EXPORT_USERS_HOST or
// EXPORT_MUC_TYPE. The suffixes are the historical per-script option names
// uppercased, so existing deployments keep working unchanged.
var legacySuffixes = map[string]string{
	"HOST":       "openfire.host",
	"TOKEN":      "openfire.secret",
	"INSECURE":   "openfire.insecure",
	"TIMEOUT":    "openfire.timeout",
	"URL":        "filebeat.url",
	"SERVICE":    "export.service",
	"TYPE":       "export.room_type",
	"SINCE":      "export.since",
	"START_TIME": "export.start_time",
	"END_TIME":   "export.end_time",
	"LIMIT":      "export.limit",
	"DRY_RUN":    "export.dry_run",
}

// standardizedNames maps the standardized environment namespace to koanf
// config paths. These beat legacy names from any namespace.
var standardizedNames = map[string]string{
	"OPENFIRE_HOST":        "openfire.host",
	"OPENFIRE_TOKEN":       "openfire.secret",
	"OPENFIRE_INSECURE":    "openfire.insecure",
	"OPENFIRE_TIMEOUT":     "openfire.timeout",
	"OPENFIRE_MUC_SERVICE": "export.service",
	"FILEBEAT_URL":         "filebeat.url",
	"EXPORT_DRY_RUN":       "export.dry_run",
	"EXPORT_SINCE":         "export.since",
	"EXPORT_LIMIT":         "export.limit",
	"LOG_LEVEL":            "logging.level",
	"LOG_FORMAT":           "logging.format",
	"LOG_CALLER":           "logging.caller",
}

// boolPaths lists config paths that must parse as strict booleans when they
// arrive as strings from the environment.
var boolPaths = []string{
	"openfire.insecure",
	"export.dry_run",
	"logging.caller",
}

// Resolve builds a Config from the layered sources. env is a snapshot of the
// process environment (conventionally from EnvSnapshot); namespace selects
// which legacy per-command variables apply; explicit carries CLI flag values
// keyed by koanf path and wins over everything.
func Resolve(env map[string]string, namespace string, explicit map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: load defaults: %v", ErrConfiguration, err)
	}

	if path := env[ConfigPathEnvVar]; path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", ErrConfiguration, path, err)
		}
	}

	if err := k.Load(confmap.Provider(legacyLayer(env, namespace), "."), nil); err != nil {
		return nil, fmt.Errorf("%w: legacy environment: %v", ErrConfiguration, err)
	}

	if err := k.Load(confmap.Provider(standardizedLayer(env), "."), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrConfiguration, err)
	}

	if len(explicit) > 0 {
		if err := k.Load(confmap.Provider(explicit, "."), nil); err != nil {
			return nil, fmt.Errorf("%w: explicit overrides: %v", ErrConfiguration, err)
		}
	}

	if err := coerceBools(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// legacyLayer extracts the legacy per-command variables for one namespace.
func legacyLayer(env map[string]string, namespace string) map[string]interface{} {
	layer := map[string]interface{}{}
	if namespace == "" {
		return layer
	}
	for suffix, path := range legacySuffixes {
		if v, ok := env[namespace+"_"+suffix]; ok && v != "" {
			layer[path] = v
		}
	}
	return layer
}

// standardizedLayer extracts the standardized variables.
func standardizedLayer(env map[string]string) map[string]interface{} {
	layer := map[string]interface{}{}
	for name, path := range standardizedNames {
		if v, ok := env[name]; ok && v != "" {
			layer[path] = v
		}
	}
	return layer
}

// coerceBools enforces strict boolean parsing for boolean config paths that
// arrived as environment strings. Only case-insensitive "true" and "false"
// are accepted; anything else is a configuration error, never a silent
// default.
func coerceBools(k *koanf.Koanf) error {
	for _, path := range boolPaths {
		val := k.Get(path)
		s, ok := val.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(s) {
		case "true":
			if err := k.Set(path, true); err != nil {
				return fmt.Errorf("%w: set %s: %v", ErrConfiguration, path, err)
			}
		case "false":
			if err := k.Set(path, false); err != nil {
				return fmt.Errorf("%w: set %s: %v", ErrConfiguration, path, err)
			}
		default:
			return fmt.Errorf("%w: %s: %q is not a boolean (want true or false)", ErrConfiguration, path, s)
		}
	}
	return nil
}
