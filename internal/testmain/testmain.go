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

// Package testmain is the entry point shared by hedwig-go test binaries.
//
// A package opts in with
//
//	func TestMain(m *testing.M) {
//		os.Exit(testmain.Run(m))
//	}
//
// which configures logging from HEDWIG_LOG_CONF, runs every test, and then
// shuts down the protocol runtime exactly once before the process exits.
package testmain

import (
	"io"
	"os"
	"testing"

	"github.com/hedwig-pubsub/hedwig-go/internal/bootstrap"
	"github.com/hedwig-pubsub/hedwig-go/internal/version"
	"github.com/hedwig-pubsub/hedwig-go/pkg/protocol"
)

type options struct {
	args   []string
	getenv func(string) string
	stderr io.Writer
}

// Option customizes Main.
type Option func(*options)

// WithArgs sets the argument list handed to the runner. Defaults to os.Args.
func WithArgs(args []string) Option {
	return func(o *options) { o.args = args }
}

// WithGetenv sets the environment lookup. Defaults to os.Getenv.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) { o.getenv = getenv }
}

// WithStderr sets where diagnostics are written. Defaults to os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// Main configures logging, runs every test registered with runner, shuts rt
// down and returns the runner's result as the exit code. Logging failures are
// reported and contained; rt is shut down exactly once whatever the result.
func Main(runner Runner, rt Teardown, opts ...Option) (code int) {
	o := options{
		args:   os.Args,
		getenv: os.Getenv,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	sel := bootstrap.ConfigureLogging(o.getenv, o.stderr)
	logger := sel.Logger
	defer func() {
		_ = sel.Release()
	}()

	defer func() {
		if err := rt.Shutdown(); err != nil {
			logger.Debug("runtime shutdown failed", "error", err)
		}
	}()

	rest := runner.Initialize(o.args)
	logger.Debug("starting test run", append(version.Attrs(), "logging", sel.Source.String(), "args", len(rest))...)

	code = runner.RunAll()
	logger.Debug("test run finished", "code", code)

	return code
}

// Run is Main for the standard test framework and the default protocol
// runtime.
func Run(m *testing.M) int {
	return Main(GoTest(m), protocol.Default())
}
