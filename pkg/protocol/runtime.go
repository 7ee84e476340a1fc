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

package protocol

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// initialBufferSize is the capacity of pooled encode buffers.
const initialBufferSize = 512

// Runtime owns the serialization state shared by every encoder in the
// process. It is safe for concurrent use. Shutdown may be called once; the
// runtime is unusable afterwards.
type Runtime struct {
	mu   sync.RWMutex
	down bool
	bufs *sync.Pool

	encoded atomic.Uint64
	decoded atomic.Uint64
}

// Stats is a snapshot of runtime activity.
type Stats struct {
	Encoded  uint64
	Decoded  uint64
	Shutdown bool
}

// NewRuntime returns a ready runtime. Most callers use Default instead.
func NewRuntime() *Runtime {
	return &Runtime{
		bufs: &sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialBufferSize)
				return &b
			},
		},
	}
}

var defaultRuntime = NewRuntime()

// Default returns the process-wide runtime.
func Default() *Runtime {
	return defaultRuntime
}

// enter takes the read lock for a codec call. On success the caller must
// release it with r.mu.RUnlock.
func (r *Runtime) enter() error {
	r.mu.RLock()
	if r.down {
		r.mu.RUnlock()
		return ErrRuntimeShutdown
	}

	return nil
}

func (r *Runtime) encode(appendFn func([]byte) []byte) []byte {
	bp, _ := r.bufs.Get().(*[]byte)
	*bp = appendFn((*bp)[:0])
	out := bytes.Clone(*bp)
	r.bufs.Put(bp)
	r.encoded.Add(1)

	return out
}

// MarshalRequest validates and encodes req.
func (r *Runtime) MarshalRequest(req *PubSubRequest) ([]byte, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return r.encode(func(b []byte) []byte { return appendRequest(b, req) }), nil
}

// UnmarshalRequest decodes and validates a request.
func (r *Runtime) UnmarshalRequest(data []byte) (*PubSubRequest, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()

	req, err := decodeRequest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.decoded.Add(1)

	return req, nil
}

// MarshalResponse encodes resp.
func (r *Runtime) MarshalResponse(resp *PubSubResponse) ([]byte, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()

	if resp.ProtocolVersion != VersionOne {
		return nil, fmt.Errorf("%w: unsupported protocol version %d", ErrMalformedRequest, int32(resp.ProtocolVersion))
	}

	return r.encode(func(b []byte) []byte { return appendResponse(b, resp) }), nil
}

// UnmarshalResponse decodes a response.
func (r *Runtime) UnmarshalResponse(data []byte) (*PubSubResponse, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.mu.RUnlock()

	resp, err := decodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	r.decoded.Add(1)

	return resp, nil
}

// WriteRequest encodes req and writes it as one frame.
func (r *Runtime) WriteRequest(w io.Writer, req *PubSubRequest) error {
	data, err := r.MarshalRequest(req)
	if err != nil {
		return err
	}

	return WriteFrame(w, data)
}

// ReadRequest reads one frame and decodes it as a request.
func (r *Runtime) ReadRequest(rd io.Reader) (*PubSubRequest, error) {
	data, err := ReadFrame(rd)
	if err != nil {
		return nil, err
	}

	return r.UnmarshalRequest(data)
}

// WriteResponse encodes resp and writes it as one frame.
func (r *Runtime) WriteResponse(w io.Writer, resp *PubSubResponse) error {
	data, err := r.MarshalResponse(resp)
	if err != nil {
		return err
	}

	return WriteFrame(w, data)
}

// ReadResponse reads one frame and decodes it as a response.
func (r *Runtime) ReadResponse(rd io.Reader) (*PubSubResponse, error) {
	data, err := ReadFrame(rd)
	if err != nil {
		return nil, err
	}

	return r.UnmarshalResponse(data)
}

// Stats returns a snapshot of the runtime counters.
func (r *Runtime) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Encoded:  r.encoded.Load(),
		Decoded:  r.decoded.Load(),
		Shutdown: r.down,
	}
}

// Shutdown releases the runtime's pooled state. It waits for in-flight codec
// calls and returns ErrRuntimeShutdown if called again.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.down {
		return ErrRuntimeShutdown
	}
	r.down = true
	r.bufs = nil

	return nil
}

// MarshalRequest encodes req with the default runtime.
func MarshalRequest(req *PubSubRequest) ([]byte, error) {
	return Default().MarshalRequest(req)
}

// UnmarshalRequest decodes a request with the default runtime.
func UnmarshalRequest(data []byte) (*PubSubRequest, error) {
	return Default().UnmarshalRequest(data)
}

// MarshalResponse encodes resp with the default runtime.
func MarshalResponse(resp *PubSubResponse) ([]byte, error) {
	return Default().MarshalResponse(resp)
}

// UnmarshalResponse decodes a response with the default runtime.
func UnmarshalResponse(data []byte) (*PubSubResponse, error) {
	return Default().UnmarshalResponse(data)
}
