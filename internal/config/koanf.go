package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CPCOACH_"

// legacyEnv maps the plain variable names used by older deployments.
var legacyEnv = map[string]string{
	"PORT":              "server.port",
	"DB_HOST":           "database.host",
	"DB_PORT":           "database.port",
	"DB_USER":           "database.user",
	"DB_PASSWORD":       "database.password",
	"DB_NAME":           "database.name",
	"DB_SSLMODE":        "database.sslmode",
	"REDIS_ADDR":        "redis.addr",
	"JWT_SECRET":        "auth.jwt_secret",
	"ANTHROPIC_API_KEY": "coach.anthropic_api_key",
	"ANTHROPIC_MODEL":   "coach.model",
	"CLAUDE_CLI_PATH":   "coach.cli_path",
	"LOG_LEVEL":         "logging.level",
}

// Load layers defaults, an optional YAML file and the environment, in that
// order of precedence.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransform turns CPCOACH_RATINGSOURCE__BASE_URL into ratingsource.base_url.
// Unrecognised variables map to "" and are ignored.
func envTransform(key string) string {
	if mapped, ok := legacyEnv[key]; ok {
		return mapped
	}
	if !strings.HasPrefix(key, envPrefix) {
		return ""
	}
	key = strings.TrimPrefix(key, envPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

// splitList normalizes a list that may have been set from a single
// comma-separated environment value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
