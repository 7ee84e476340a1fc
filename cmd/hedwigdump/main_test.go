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

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedwig-pubsub/hedwig-go/internal/logging"
	"github.com/hedwig-pubsub/hedwig-go/internal/testmain"
	"github.com/hedwig-pubsub/hedwig-go/pkg/protocol"
)

func TestMain(m *testing.M) {
	os.Exit(testmain.Run(m))
}

func newTestLogger(t *testing.T) logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{Output: "none"})
	require.NoError(t, err)

	return logger
}

func TestDumpRequests(t *testing.T) {
	t.Parallel()

	rt := protocol.NewRuntime()
	t.Cleanup(func() { _ = rt.Shutdown() })

	var in bytes.Buffer
	require.NoError(t, rt.WriteRequest(&in, protocol.NewSubscribeRequest(1, "testTopic", "mySubscriberId-1", protocol.Attach)))
	require.NoError(t, rt.WriteRequest(&in, protocol.NewPublishRequest(2, "testTopic", []byte("hello"))))
	require.NoError(t, rt.WriteRequest(&in, protocol.NewConsumeRequest(3, "testTopic", "mySubscriberId-1", protocol.MessageSeqID{LocalComponent: 12})))

	var out bytes.Buffer
	n, err := dump(rt, &in, &out, false, newTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`txn=1 op=SUBSCRIBE topic="testTopic" subscriber="mySubscriberId-1" mode=ATTACH`,
		`txn=2 op=PUBLISH topic="testTopic" body=5`,
		`txn=3 op=CONSUME topic="testTopic" subscriber="mySubscriberId-1" seq=12`,
	}, lines)
}

func TestDumpResponses(t *testing.T) {
	t.Parallel()

	rt := protocol.NewRuntime()
	t.Cleanup(func() { _ = rt.Shutdown() })

	var in bytes.Buffer
	require.NoError(t, rt.WriteResponse(&in, &protocol.PubSubResponse{
		ProtocolVersion: protocol.VersionOne,
		StatusCode:      protocol.StatusClientAlreadySubscribed,
		TxnID:           8,
		StatusMsg:       "mySubscriberId-8",
	}))
	require.NoError(t, rt.WriteResponse(&in, &protocol.PubSubResponse{
		ProtocolVersion: protocol.VersionOne,
		TxnID:           9,
		Topic:           "testTopic",
		SubscriberID:    "mySubscriberId-3",
		Message:         &protocol.Message{Body: []byte("abc"), MsgID: &protocol.MessageSeqID{LocalComponent: 4}},
	}))

	var out bytes.Buffer
	n, err := dump(rt, &in, &out, true, newTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"txn=8 status=403 (client already subscribed) msg=\"mySubscriberId-8\"\n"+
			"txn=9 status=SUCCESS topic=\"testTopic\" subscriber=\"mySubscriberId-3\" body=3 seq=4\n",
		out.String())
}

func TestDumpStopsAtBadFrame(t *testing.T) {
	t.Parallel()

	rt := protocol.NewRuntime()
	t.Cleanup(func() { _ = rt.Shutdown() })

	var in bytes.Buffer
	require.NoError(t, rt.WriteRequest(&in, protocol.NewUnsubscribeRequest(1, "testTopic", "mySubscriberId-4")))
	require.NoError(t, protocol.WriteFrame(&in, []byte{0xff}))

	var out bytes.Buffer
	n, err := dump(rt, &in, &out, false, newTestLogger(t))
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "op=UNSUBSCRIBE")
}

func TestDumpAfterShutdown(t *testing.T) {
	t.Parallel()

	rt := protocol.NewRuntime()
	var in bytes.Buffer
	require.NoError(t, rt.WriteRequest(&in, protocol.NewUnsubscribeRequest(1, "testTopic", "mySubscriberId-4")))
	require.NoError(t, rt.Shutdown())

	_, err := dump(rt, &in, &bytes.Buffer{}, false, newTestLogger(t))
	require.ErrorIs(t, err, protocol.ErrRuntimeShutdown)
}
