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

//go:build integration

package test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedwig-pubsub/hedwig-go/internal/config"
	"github.com/hedwig-pubsub/hedwig-go/pkg/protocol"
)

const (
	unsetNotice    = "Set HEDWIG_LOG_CONF in your environment to get logging."
	releasedMarker = "protocol runtime released"
)

type result struct {
	stdout string
	stderr string
	code   int
}

// buildBinary compiles pkg into a temporary directory with the go command.
func buildBinary(t *testing.T, args ...string) string {
	t.Helper()

	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available")
	}

	out := filepath.Join(t.TempDir(), "bin")
	cmd := exec.Command(goBin, append(args[:1:1], append([]string{"-o", out}, args[1:]...)...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", output)

	return out
}

// environ returns the current environment without HEDWIG_LOG_CONF, plus extra.
func environ(extra ...string) []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, config.EnvVar+"=") {
			env = append(env, kv)
		}
	}
	env = append(env, "NO_COLOR=1")

	return append(env, extra...)
}

func execute(t *testing.T, bin string, stdin []byte, env []string, args ...string) result {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		code = exitErr.ExitCode()
	}

	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func writeLogConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "logging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// TestSuiteProcessE2E runs a compiled test binary that uses the shared entry point.
func TestSuiteProcessE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	bin := buildBinary(t, "test", "-c", "./testdata/suite")

	t.Run("unset variable with a failing test", func(t *testing.T) {
		res := execute(t, bin, nil, environ("HEDWIG_FIXTURE_FAIL=1"))

		assert.NotEqual(t, 0, res.code)
		assert.Equal(t, 1, strings.Count(res.stderr, unsetNotice))
		assert.Contains(t, res.stdout, "--- FAIL: TestFailsOnRequest")
		assert.Contains(t, res.stdout, releasedMarker)
	})

	t.Run("valid configuration with passing tests", func(t *testing.T) {
		path := writeLogConfig(t, "logging:\n  level: debug\n  output: stdout\n")
		res := execute(t, bin, nil, environ(config.EnvVar+"="+path), "-test.v")

		assert.Equal(t, 0, res.code)
		assert.Empty(t, res.stderr)
		assert.Contains(t, res.stdout, "starting test run")
		assert.Contains(t, res.stdout, "--- PASS: TestSubscribeEncodes")
		assert.Contains(t, res.stdout, releasedMarker)
	})

	t.Run("valid configuration with no matching tests", func(t *testing.T) {
		path := writeLogConfig(t, "logging:\n  output: none\n")
		res := execute(t, bin, nil, environ(config.EnvVar+"="+path), "-test.run", "^$")

		assert.Equal(t, 0, res.code)
		assert.NotContains(t, res.stderr, unsetNotice)
		assert.Contains(t, res.stdout, releasedMarker)
	})

	t.Run("malformed configuration", func(t *testing.T) {
		path := writeLogConfig(t, "invalid: yaml: content:")
		res := execute(t, bin, nil, environ(config.EnvVar+"="+path))

		assert.Equal(t, 0, res.code)
		assert.Equal(t, 1, strings.Count(res.stderr, "exception caught while configuring logging via "+path))
		assert.Contains(t, res.stdout, releasedMarker)
	})
}

// TestHedwigDumpE2E runs the frame inspection tool as a separate process.
func TestHedwigDumpE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	bin := buildBinary(t, "build", "../cmd/hedwigdump")

	rt := protocol.NewRuntime()
	t.Cleanup(func() { _ = rt.Shutdown() })

	var frames bytes.Buffer
	require.NoError(t, rt.WriteRequest(&frames, protocol.NewSubscribeRequest(1, "testTopic", "mySubscriberId-1", protocol.CreateOrAttachBoth)))
	require.NoError(t, rt.WriteRequest(&frames, protocol.NewCloseSubscriptionRequest(2, "testTopic", "mySubscriberId-1")))

	t.Run("stdin without configuration", func(t *testing.T) {
		res := execute(t, bin, frames.Bytes(), environ())

		assert.Equal(t, 0, res.code)
		assert.Equal(t, unsetNotice+"\n", res.stderr)
		assert.Equal(t,
			"txn=1 op=SUBSCRIBE topic=\"testTopic\" subscriber=\"mySubscriberId-1\" mode=CREATE_OR_ATTACH\n"+
				"txn=2 op=CLOSESUBSCRIPTION topic=\"testTopic\" subscriber=\"mySubscriberId-1\"\n",
			res.stdout)
	})

	t.Run("file argument with configuration", func(t *testing.T) {
		input := filepath.Join(t.TempDir(), "frames.bin")
		require.NoError(t, os.WriteFile(input, frames.Bytes(), 0o600))
		path := writeLogConfig(t, "logging:\n  output: none\n")

		res := execute(t, bin, nil, environ(config.EnvVar+"="+path), input)

		assert.Equal(t, 0, res.code)
		assert.Empty(t, res.stderr)
		assert.Equal(t, 2, strings.Count(res.stdout, "\n"))
	})

	t.Run("corrupt frame", func(t *testing.T) {
		res := execute(t, bin, []byte{0, 0, 0, 1, 0xff}, environ())

		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "Error decoding frame 1")
	})

	t.Run("version", func(t *testing.T) {
		res := execute(t, bin, nil, environ(), "-version")

		assert.Equal(t, 0, res.code)
		assert.True(t, strings.HasPrefix(res.stdout, "hedwig-go version "))
	})
}
