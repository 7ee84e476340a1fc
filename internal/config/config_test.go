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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "logging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("valid config file", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `
logging:
  level: "debug"
  output: "stdout"
  format: "json"
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("defaults fill empty fields", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "logging: {}\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to read config file")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `invalid: yaml: content:`)

		cfg, err := Load(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "logging:\n  colour: true\n")

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "")

		_, err := Load(path)
		require.ErrorIs(t, err, ErrEmptyConfig)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		logging LoggingConfig
		wantErr error
	}{
		{
			name:    "default",
			logging: Default().Logging,
		},
		{
			name:    "directory output",
			logging: LoggingConfig{Level: "warn", Output: "directory", Directory: "/tmp", Format: "text"},
		},
		{
			name:    "bad level",
			logging: LoggingConfig{Level: "verbose", Output: "stderr", Format: "text"},
			wantErr: ErrInvalidLevel,
		},
		{
			name:    "bad output",
			logging: LoggingConfig{Level: "info", Output: "syslog", Format: "text"},
			wantErr: ErrInvalidOutput,
		},
		{
			name:    "bad format",
			logging: LoggingConfig{Level: "info", Output: "stderr", Format: "xml"},
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Logging: tt.logging}
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	env := map[string]string{}
	getenv := func(key string) string { return env[key] }

	src := Resolve(getenv)
	assert.False(t, src.FromEnv)
	assert.Equal(t, "built-in default", src.String())

	env[EnvVar] = ""
	assert.False(t, Resolve(getenv).FromEnv)

	env[EnvVar] = "/etc/hedwig/logging.yaml"
	src = Resolve(getenv)
	assert.True(t, src.FromEnv)
	assert.Equal(t, "/etc/hedwig/logging.yaml", src.Path)
	assert.Equal(t, "/etc/hedwig/logging.yaml", src.String())
}
