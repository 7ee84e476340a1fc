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

package testmain

import (
	"flag"
	"testing"
)

// Runner is a test framework that Main hands control to.
type Runner interface {
	// Initialize lets the framework consume its own flags from args (the
	// full argument list, program name first) and returns what remains.
	Initialize(args []string) []string
	// RunAll runs every registered test. Zero means every test passed.
	RunAll() int
}

// Teardown releases process-wide state once all tests have run.
type Teardown interface {
	Shutdown() error
}

type goTest struct {
	m *testing.M
}

// GoTest adapts the standard test framework.
func GoTest(m *testing.M) Runner {
	return goTest{m: m}
}

func (goTest) Initialize(args []string) []string {
	if !flag.Parsed() && len(args) > 0 {
		// flag.CommandLine exits on malformed -test.* flags.
		_ = flag.CommandLine.Parse(args[1:])
	}

	return flag.Args()
}

func (g goTest) RunAll() int {
	return g.m.Run()
}
