// Package config assembles server configuration from the environment.
// Every variable carries the SOCRATIC_ prefix; flags on the serve
// command override the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/store"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// Mode selects logging and gin mode: "dev" or "prod".
	Mode string

	// AllowOrigins is the CORS allow-list. ["*"] allows everything.
	AllowOrigins []string

	// ConceptsPath points at a concepts JSON file. Empty selects the
	// embedded seed graph.
	ConceptsPath string

	Store store.Config
	LLM   llm.Config
}

// FromEnv builds a Config from environment variables with defaults
// suitable for local development.
func FromEnv() Config {
	cfg := Config{
		Addr:         ":8000",
		Mode:         "dev",
		AllowOrigins: []string{"*"},
		LLM:          llm.ConfigFromEnv(),
		Store: store.Config{
			Driver:   "postgres",
			FilePath: defaultStorePath(),
		},
	}

	if v := os.Getenv("SOCRATIC_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SOCRATIC_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("SOCRATIC_CORS_ORIGINS"); v != "" {
		cfg.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("SOCRATIC_CONCEPTS"); v != "" {
		cfg.ConceptsPath = v
	}
	if v := os.Getenv("SOCRATIC_DB_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SOCRATIC_DB_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("SOCRATIC_STORE_PATH"); v != "" {
		cfg.Store.FilePath = v
	}
	return cfg
}

// defaultStorePath places the flat-file store under XDG data, falling
// back to the working directory when no home is resolvable.
func defaultStorePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "sessions.json"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "socratic", "sessions.json")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
