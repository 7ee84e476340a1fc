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

// Package main implements hedwigdump, which prints length-prefixed Hedwig
// frames read from a file or standard input.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/hedwig-pubsub/hedwig-go/internal/bootstrap"
	"github.com/hedwig-pubsub/hedwig-go/internal/logging"
	"github.com/hedwig-pubsub/hedwig-go/internal/version"
	"github.com/hedwig-pubsub/hedwig-go/pkg/protocol"
)

var (
	versionFlag  = flag.Bool("version", false, "Show version information")
	responseFlag = flag.Bool("response", false, "Decode frames as responses instead of requests")
)

func main() {
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func run(args []string) int {
	if *versionFlag {
		_, _ = fmt.Fprintln(os.Stdout, version.String()) //nolint:errcheck // stdout write failure is not actionable
		return 0
	}

	sel := bootstrap.ConfigureLogging(os.Getenv, os.Stderr)
	defer func() {
		_ = sel.Release()
	}()

	rt := protocol.Default()
	defer func() {
		if err := rt.Shutdown(); err != nil {
			sel.Logger.Debug("runtime shutdown failed", "error", err)
		}
	}()

	in := io.Reader(os.Stdin)
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error opening %s: %v\n", args[0], err)
			return 1
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	n, err := dump(rt, in, os.Stdout, *responseFlag, sel.Logger)
	if err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error decoding frame %d: %v\n", n+1, err)
		return 1
	}

	return 0
}

// dump decodes frames from r until EOF, writing one line per frame to w. It
// returns the number of frames printed.
func dump(rt *protocol.Runtime, r io.Reader, w io.Writer, responses bool, logger logging.Logger) (int, error) {
	n := 0
	for {
		var line string
		if responses {
			resp, err := rt.ReadResponse(r)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return n, err
			}
			line = formatResponse(resp)
		} else {
			req, err := rt.ReadRequest(r)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return n, err
			}
			line = formatRequest(req)
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return n, fmt.Errorf("failed to write output: %w", err)
		}
		n++
	}
	logger.Debug("dump finished", "frames", n, "stats", rt.Stats())

	return n, nil
}

func formatRequest(req *protocol.PubSubRequest) string {
	line := fmt.Sprintf("txn=%d op=%v topic=%q", req.TxnID, req.Type, req.Topic)
	if id := req.SubscriberID(); id != "" {
		line += fmt.Sprintf(" subscriber=%q", id)
	}
	switch {
	case req.Subscribe != nil:
		line += fmt.Sprintf(" mode=%v", req.Subscribe.CreateOrAttach)
	case req.Publish != nil:
		line += fmt.Sprintf(" body=%d", len(req.Publish.Msg.Body))
	case req.Consume != nil:
		line += fmt.Sprintf(" seq=%d", req.Consume.MsgID.LocalComponent)
	}

	return line
}

func formatResponse(resp *protocol.PubSubResponse) string {
	line := fmt.Sprintf("txn=%d status=%v", resp.TxnID, resp.StatusCode)
	if resp.Topic != "" {
		line += fmt.Sprintf(" topic=%q", resp.Topic)
	}
	if resp.SubscriberID != "" {
		line += fmt.Sprintf(" subscriber=%q", resp.SubscriberID)
	}
	if resp.Message != nil {
		line += fmt.Sprintf(" body=%d", len(resp.Message.Body))
		if resp.Message.MsgID != nil {
			line += fmt.Sprintf(" seq=%d", resp.Message.MsgID.LocalComponent)
		}
	}
	if resp.StatusMsg != "" {
		line += fmt.Sprintf(" msg=%q", resp.StatusMsg)
	}

	return line
}
