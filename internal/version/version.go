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

// Package version reports which build of hedwig-go is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is set via ldflags during build.
var Version = "dev"

const shortCommitLen = 7

// vcsInfo is the subset of the embedded build settings we report.
type vcsInfo struct {
	revision string
	time     string
	modified bool
	module   string
}

func readVCS() vcsInfo {
	var v vcsInfo

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.module = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.revision = setting.Value
		case "vcs.time":
			v.time = setting.Value
		case "vcs.modified":
			v.modified = setting.Value == "true"
		default:
		}
	}

	return v
}

// Commit returns the short VCS revision, suffixed with -dirty for modified
// trees, or "unknown" when the binary carries no VCS stamp.
func Commit() string {
	v := readVCS()
	commit := v.revision
	if commit == "" {
		commit = "unknown"
	} else if len(commit) > shortCommitLen {
		commit = commit[:shortCommitLen]
	}
	if v.modified {
		commit += "-dirty"
	}

	return commit
}

// String returns a one-line version string.
func String() string {
	return fmt.Sprintf("hedwig-go version %s (%s, %s/%s)",
		Version, Commit(), runtime.GOOS, runtime.GOARCH)
}

// Attrs returns the version as slog key/value pairs.
func Attrs() []any {
	return []any{
		"version", Version,
		"commit", Commit(),
		"go", runtime.Version(),
	}
}

// DetailedString returns a multi-line report including build info.
func DetailedString() string {
	v := readVCS()

	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "hedwig-go version %s\n", Version)
	_, _ = fmt.Fprintf(&b, "  Go:       %s\n", runtime.Version())
	_, _ = fmt.Fprintf(&b, "  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if v.module != "" {
		_, _ = fmt.Fprintf(&b, "  Module:   %s\n", v.module)
	}
	if v.revision != "" {
		_, _ = fmt.Fprintf(&b, "  Commit:   %s\n", v.revision)
	}
	if v.time != "" {
		_, _ = fmt.Fprintf(&b, "  VCS Time: %s\n", v.time)
	}
	if v.modified {
		_, _ = b.WriteString("  Modified: true\n")
	}

	return b.String()
}
