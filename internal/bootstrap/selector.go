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

// Package bootstrap selects and installs the process-wide logging
// configuration for hedwig-go test binaries and tools.
package bootstrap

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hedwig-pubsub/hedwig-go/internal/config"
	"github.com/hedwig-pubsub/hedwig-go/internal/logging"
)

// panicError carries a panic recovered while configuring logging.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprint(e.value)
}

var (
	noticeColor  = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed)
)

// Replaced in tests.
var (
	loadConfig = config.Load
	newLogger  = logging.New
)

// Selection is the outcome of ConfigureLogging.
type Selection struct {
	// Source is where the configuration was taken from.
	Source config.Source
	// Logger is the installed logger. It is never nil.
	Logger logging.Logger
	// Err is the contained failure, if any. It has already been reported.
	Err error

	restore func()
}

// Release reinstalls the previous process-wide logger and closes Logger.
func (s *Selection) Release() error {
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}

	return s.Logger.Close()
}

// ConfigureLogging installs the process-wide logger named by the
// HEDWIG_LOG_CONF variable, or the built-in default when it is unset. It never
// fails: any error or panic is reported once on stderr and the built-in
// default is used instead.
func ConfigureLogging(getenv func(string) string, stderr io.Writer) *Selection {
	src := config.Resolve(getenv)
	if !src.FromEnv {
		_, _ = noticeColor.Fprintf(stderr, "Set %s in your environment to get logging.\n", config.EnvVar)

		return installDefault(src, nil)
	}

	logger, err := apply(src)
	if err == nil {
		return &Selection{Source: src, Logger: logger, restore: logging.Install(logger)}
	}

	var pe *panicError
	if errors.As(err, &pe) {
		_, _ = failureColor.Fprintf(stderr, "unknown failure while configuring logging via %s: %v\n", src, err)
	} else {
		_, _ = failureColor.Fprintf(stderr, "exception caught while configuring logging via %s: %v\n", src, err)
	}

	return installDefault(src, err)
}

func installDefault(src config.Source, err error) *Selection {
	logger := logging.Default()

	return &Selection{Source: src, Logger: logger, Err: err, restore: logging.Install(logger)}
}

// apply loads the configuration file and builds its logger, turning a panic
// anywhere on that path into an error.
func apply(src config.Source) (logger logging.Logger, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger = nil
			err = &panicError{value: r}
		}
	}()

	cfg, err := loadConfig(src.Path)
	if err != nil {
		return nil, err
	}

	return newLogger(logging.FromConfig(cfg.Logging))
}
