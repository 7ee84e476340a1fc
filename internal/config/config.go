// Copyright © 2025 Michael Shields
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves and loads the logging configuration used by
// hedwig-go test processes and tools.
package config

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// EnvVar names the environment variable holding the configuration file path.
const EnvVar = "HEDWIG_LOG_CONF"

// Defaults applied when the file leaves a field empty, and by Default.
const (
	DefaultLevel  = "info"
	DefaultOutput = "stdout"
	DefaultFormat = "text"
)

var (
	// ErrEmptyConfig is returned when the configuration file has no content.
	ErrEmptyConfig = errors.New("configuration file is empty")

	// ErrInvalidLevel is returned for a level outside debug, info, warn, error.
	ErrInvalidLevel = errors.New("invalid logging level")

	// ErrInvalidOutput is returned for an unsupported logging output.
	ErrInvalidOutput = errors.New("invalid logging output")

	// ErrInvalidFormat is returned for a format other than text or json.
	ErrInvalidFormat = errors.New("invalid logging format")
)

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level,omitempty"`

	// Output specifies where logs should be written:
	// - "none": Disable logging
	// - "stdout": Write to standard output (default if empty)
	// - "stderr": Write to standard error
	// - "directory": Write to a file in Directory.
	Output string `json:"output,omitempty"`

	// Directory is the directory for log files (when Output is "directory").
	Directory string `json:"directory,omitempty"`

	// Format is the record encoding, "text" or "json".
	Format string `json:"format,omitempty"`
}

// Config represents the contents of a logging configuration file.
type Config struct {
	Logging LoggingConfig `json:"logging"`
}

// Source describes where the configuration came from.
type Source struct {
	// Path is the file named by EnvVar; empty for the built-in default.
	Path string
	// FromEnv reports whether EnvVar was set.
	FromEnv bool
}

// String implements fmt.Stringer.
func (s Source) String() string {
	if !s.FromEnv {
		return "built-in default"
	}

	return s.Path
}

// Resolve reads EnvVar through getenv. Presence is the only input: an unset
// or empty variable selects the built-in default.
func Resolve(getenv func(string) string) Source {
	path := getenv(EnvVar)
	if path == "" {
		return Source{}
	}

	return Source{Path: path, FromEnv: true}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLevel,
			Output: DefaultOutput,
			Format: DefaultFormat,
		},
	}
}

// Load reads, parses and validates the YAML file at path. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses and validates YAML configuration content.
func Parse(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, ErrEmptyConfig
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults.
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLevel
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultOutput
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the logging section for unsupported values.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Logging.Level)
	}

	switch c.Logging.Output {
	case "none", "stdout", "stderr", "directory":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Logging.Output)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Logging.Format)
	}

	return nil
}
