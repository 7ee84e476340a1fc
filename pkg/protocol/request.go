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

import "fmt"

func newRequest(op OperationType, txnID uint64, topic string) *PubSubRequest {
	return &PubSubRequest{
		ProtocolVersion: VersionOne,
		Type:            op,
		TxnID:           txnID,
		Topic:           topic,
	}
}

// NewPublishRequest builds a publish of body to topic.
func NewPublishRequest(txnID uint64, topic string, body []byte) *PubSubRequest {
	req := newRequest(OpPublish, txnID, topic)
	req.Publish = &PublishRequest{Msg: Message{Body: body}}

	return req
}

// NewSubscribeRequest builds a synchronous subscribe with the given mode.
func NewSubscribeRequest(txnID uint64, topic, subscriberID string, mode CreateOrAttach) *PubSubRequest {
	req := newRequest(OpSubscribe, txnID, topic)
	req.Subscribe = &SubscribeRequest{
		SubscriberID:   subscriberID,
		CreateOrAttach: mode,
		Synchronous:    true,
	}

	return req
}

// NewUnsubscribeRequest builds an unsubscribe.
func NewUnsubscribeRequest(txnID uint64, topic, subscriberID string) *PubSubRequest {
	req := newRequest(OpUnsubscribe, txnID, topic)
	req.Unsubscribe = &UnsubscribeRequest{SubscriberID: subscriberID}

	return req
}

// NewConsumeRequest acknowledges messages up to and including msgID.
func NewConsumeRequest(txnID uint64, topic, subscriberID string, msgID MessageSeqID) *PubSubRequest {
	req := newRequest(OpConsume, txnID, topic)
	req.Consume = &ConsumeRequest{SubscriberID: subscriberID, MsgID: msgID}

	return req
}

// NewCloseSubscriptionRequest detaches subscriberID from topic.
func NewCloseSubscriptionRequest(txnID uint64, topic, subscriberID string) *PubSubRequest {
	req := newRequest(OpCloseSubscription, txnID, topic)
	req.CloseSubscription = &CloseSubscriptionRequest{SubscriberID: subscriberID}

	return req
}

// SubscriberID returns the subscriber named by whichever sub-request is set.
func (r *PubSubRequest) SubscriberID() string {
	switch {
	case r.Subscribe != nil:
		return r.Subscribe.SubscriberID
	case r.Consume != nil:
		return r.Consume.SubscriberID
	case r.Unsubscribe != nil:
		return r.Unsubscribe.SubscriberID
	case r.StopDelivery != nil:
		return r.StopDelivery.SubscriberID
	case r.StartDelivery != nil:
		return r.StartDelivery.SubscriberID
	case r.CloseSubscription != nil:
		return r.CloseSubscription.SubscriberID
	default:
		return ""
	}
}

// Validate checks that the request can be put on the wire: a supported
// protocol version, a topic, and the sub-request matching Type.
func (r *PubSubRequest) Validate() error {
	if r.ProtocolVersion != VersionOne {
		return fmt.Errorf("%w: unsupported protocol version %d", ErrMalformedRequest, int32(r.ProtocolVersion))
	}
	if r.Topic == "" {
		return fmt.Errorf("%w: topic", ErrMissingField)
	}

	present := false
	switch r.Type {
	case OpPublish:
		present = r.Publish != nil
	case OpSubscribe:
		present = r.Subscribe != nil
	case OpConsume:
		present = r.Consume != nil
	case OpUnsubscribe:
		present = r.Unsubscribe != nil
	case OpStartDelivery:
		present = r.StartDelivery != nil
	case OpStopDelivery:
		present = r.StopDelivery != nil
	case OpCloseSubscription:
		present = r.CloseSubscription != nil
	default:
		return fmt.Errorf("%w: unknown operation %v", ErrMalformedRequest, r.Type)
	}
	if !present {
		return fmt.Errorf("%w: %v request without its body", ErrMalformedRequest, r.Type)
	}

	if r.Type != OpPublish && r.SubscriberID() == "" {
		return fmt.Errorf("%w: subscriberId", ErrMissingField)
	}

	return nil
}
