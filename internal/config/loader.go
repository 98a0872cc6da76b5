package config

import (
	"errors"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML): path argument, or EDUSYNC_CONFIG if path is empty
//  3. env (prefix EDUSYNC_), after loading .env if present
func Load(path string) (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("EDUSYNC_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrapLoadError(err)
		}
	}

	// Environment variables: EDUSYNC_DATABASE_URL -> database_url.
	// Underscores are preserved to match the flat koanf tags; the
	// nested field mappings are file-only.
	envProvider := env.Provider("EDUSYNC_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "edusync_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, wrapLoadError(err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, wrapLoadError(err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints and required credentials.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return wrapValidationError(fields)
		}
		return wrapLoadError(err)
	}
	return nil
}
