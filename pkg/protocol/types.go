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

// Package protocol implements the Hedwig publish/subscribe wire messages,
// their protobuf encoding and the length-prefixed framing used on channels.
//
// Encoding state is owned by a process-wide Runtime. Tools and test binaries
// call Default().Shutdown exactly once before exiting; after that every codec
// entry point of the runtime reports ErrRuntimeShutdown.
package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntimeShutdown is returned by a Runtime after Shutdown.
	ErrRuntimeShutdown = errors.New("protocol runtime has been shut down")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedRequest is returned for requests that cannot be processed,
	// and is the error for StatusMalformedRequest.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrWireType is returned when a known field arrives with the wrong
	// wire type.
	ErrWireType = errors.New("unexpected wire type")

	// ErrFrameTooLarge is returned for frames longer than MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Errors reported by the server through PubSubResponse.StatusCode.
var (
	ErrNoSuchTopic          = errors.New("no such topic")
	ErrAlreadySubscribed    = errors.New("client already subscribed")
	ErrNotSubscribed        = errors.New("client not subscribed")
	ErrCouldNotConnect      = errors.New("could not connect")
	ErrTopicBusy            = errors.New("topic busy")
	ErrNotResponsible       = errors.New("server not responsible for topic")
	ErrServiceDown          = errors.New("service down")
	ErrUncertainState       = errors.New("uncertain state")
	ErrUnexpectedStatusCode = errors.New("unexpected error")
)

// ProtocolVersion identifies the wire protocol revision.
type ProtocolVersion int32

// VersionOne is the only protocol version.
const VersionOne ProtocolVersion = 1

// OperationType is the kind of a PubSubRequest.
type OperationType int32

// Operation types.
const (
	OpPublish           OperationType = 0
	OpSubscribe         OperationType = 1
	OpConsume           OperationType = 2
	OpUnsubscribe       OperationType = 3
	OpStartDelivery     OperationType = 4
	OpStopDelivery      OperationType = 5
	OpCloseSubscription OperationType = 6
)

var operationNames = map[OperationType]string{
	OpPublish:           "PUBLISH",
	OpSubscribe:         "SUBSCRIBE",
	OpConsume:           "CONSUME",
	OpUnsubscribe:       "UNSUBSCRIBE",
	OpStartDelivery:     "START_DELIVERY",
	OpStopDelivery:      "STOP_DELIVERY",
	OpCloseSubscription: "CLOSESUBSCRIPTION",
}

func (o OperationType) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}

	return fmt.Sprintf("OperationType(%d)", int32(o))
}

// CreateOrAttach controls whether a subscribe may create the subscription.
type CreateOrAttach int32

// Subscribe modes. CreateOrAttachBoth is the default.
const (
	Create             CreateOrAttach = 0
	Attach             CreateOrAttach = 1
	CreateOrAttachBoth CreateOrAttach = 2
)

func (c CreateOrAttach) String() string {
	switch c {
	case Create:
		return "CREATE"
	case Attach:
		return "ATTACH"
	case CreateOrAttachBoth:
		return "CREATE_OR_ATTACH"
	default:
		return fmt.Sprintf("CreateOrAttach(%d)", int32(c))
	}
}

// StatusCode is the outcome carried by a PubSubResponse.
type StatusCode int32

// Status codes.
const (
	StatusSuccess                 StatusCode = 0
	StatusMalformedRequest        StatusCode = 401
	StatusNoSuchTopic             StatusCode = 402
	StatusClientAlreadySubscribed StatusCode = 403
	StatusClientNotSubscribed     StatusCode = 404
	StatusCouldNotConnect         StatusCode = 405
	StatusTopicBusy               StatusCode = 406
	StatusNotResponsibleForTopic  StatusCode = 501
	StatusServiceDown             StatusCode = 502
	StatusUncertainState          StatusCode = 503
	StatusUnexpectedError         StatusCode = 600
)

var statusErrors = map[StatusCode]error{
	StatusMalformedRequest:        ErrMalformedRequest,
	StatusNoSuchTopic:             ErrNoSuchTopic,
	StatusClientAlreadySubscribed: ErrAlreadySubscribed,
	StatusClientNotSubscribed:     ErrNotSubscribed,
	StatusCouldNotConnect:         ErrCouldNotConnect,
	StatusTopicBusy:               ErrTopicBusy,
	StatusNotResponsibleForTopic:  ErrNotResponsible,
	StatusServiceDown:             ErrServiceDown,
	StatusUncertainState:          ErrUncertainState,
}

// Err maps a status to its sentinel error; nil for StatusSuccess. Codes
// without a dedicated sentinel wrap ErrUnexpectedStatusCode.
func (s StatusCode) Err() error {
	if s == StatusSuccess {
		return nil
	}
	if err, ok := statusErrors[s]; ok {
		return err
	}

	return fmt.Errorf("%w: status %d", ErrUnexpectedStatusCode, int32(s))
}

func (s StatusCode) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	if err, ok := statusErrors[s]; ok {
		return fmt.Sprintf("%d (%v)", int32(s), err)
	}

	return fmt.Sprintf("StatusCode(%d)", int32(s))
}

// RegionSpecificSeqID is a sequence number assigned by a remote region.
type RegionSpecificSeqID struct {
	Region string
	SeqID  uint64
}

// MessageSeqID orders a message within a topic.
type MessageSeqID struct {
	LocalComponent   uint64
	RemoteComponents []RegionSpecificSeqID
}

// Message is a published payload.
type Message struct {
	Body      []byte
	SrcRegion string
	MsgID     *MessageSeqID
}

// PublishRequest carries the message for OpPublish.
type PublishRequest struct {
	Msg Message
}

// SubscribeRequest carries the arguments for OpSubscribe.
type SubscribeRequest struct {
	SubscriberID   string
	CreateOrAttach CreateOrAttach
	Synchronous    bool
	// MessageBound limits the messages retained for the subscriber; zero
	// means unbounded.
	MessageBound uint32
}

// ConsumeRequest acknowledges delivery up to MsgID.
type ConsumeRequest struct {
	SubscriberID string
	MsgID        MessageSeqID
}

// UnsubscribeRequest removes a subscription.
type UnsubscribeRequest struct {
	SubscriberID string
}

// StartDeliveryRequest resumes delivery to a subscriber.
type StartDeliveryRequest struct {
	SubscriberID string
}

// StopDeliveryRequest pauses delivery to a subscriber.
type StopDeliveryRequest struct {
	SubscriberID string
}

// CloseSubscriptionRequest detaches a subscriber without unsubscribing.
type CloseSubscriptionRequest struct {
	SubscriberID string
}

// PubSubRequest is the envelope for every client request. Exactly the
// sub-request matching Type is expected to be set.
type PubSubRequest struct {
	ProtocolVersion ProtocolVersion
	Type            OperationType
	TriedServers    []string
	TxnID           uint64
	ShouldClaim     bool
	Topic           string

	Publish           *PublishRequest
	Subscribe         *SubscribeRequest
	Consume           *ConsumeRequest
	Unsubscribe       *UnsubscribeRequest
	StopDelivery      *StopDeliveryRequest
	StartDelivery     *StartDeliveryRequest
	CloseSubscription *CloseSubscriptionRequest
}

// PubSubResponse is the server's answer to a request, or a delivered message.
type PubSubResponse struct {
	ProtocolVersion ProtocolVersion
	StatusCode      StatusCode
	TxnID           uint64
	StatusMsg       string
	Message         *Message
	Topic           string
	SubscriberID    string
}

// Err returns the response status as an error, annotated with StatusMsg.
func (r *PubSubResponse) Err() error {
	err := r.StatusCode.Err()
	if err == nil || r.StatusMsg == "" {
		return err
	}

	return fmt.Errorf("%w: %s", err, r.StatusMsg)
}
