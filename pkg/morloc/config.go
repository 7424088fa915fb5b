package morloc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the compiler configuration: one executor command per backend
// language and the library root used to resolve source imports.
type Config struct {
	// Executors maps a language name to the command that launches its pool.
	Executors map[string]string `toml:"executors"`

	// Lib is the library root path. The MORLOC_LIB environment variable
	// overrides it.
	Lib string `toml:"lib"`
}

// DefaultConfig returns the built-in executor table.
func DefaultConfig() *Config {
	return &Config{
		Executors: map[string]string{
			"py": "python3",
			"r":  "Rscript",
		},
	}
}

// LoadConfig reads a morloc.toml file. Executors not named in the file keep
// their built-in defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Executors == nil {
		cfg.Executors = make(map[string]string)
	}
	for lang, cmd := range DefaultConfig().Executors {
		if _, ok := cfg.Executors[lang]; !ok {
			cfg.Executors[lang] = cmd
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

// FindConfig searches for a morloc.toml starting from dir and walking up to
// parent directories. Returns the defaults when no file is found.
func FindConfig(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "morloc.toml")
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			cfg := DefaultConfig()
			cfg.applyEnv()
			return cfg, nil
		}
		dir = parent
	}
}

func (c *Config) applyEnv() {
	if lib := os.Getenv("MORLOC_LIB"); lib != "" {
		c.Lib = lib
	}
}

// Executor returns the configured launcher for a language.
func (c *Config) Executor(lang string) (string, error) {
	if cmd, ok := c.Executors[lang]; ok {
		return cmd, nil
	}
	return "", MissingExecutorError{Lang: lang}
}
