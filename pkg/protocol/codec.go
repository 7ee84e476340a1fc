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

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from the Hedwig PubSubProtocol definitions.
const (
	fieldReqProtocolVersion   protowire.Number = 1
	fieldReqType              protowire.Number = 2
	fieldReqTriedServers      protowire.Number = 3
	fieldReqTxnID             protowire.Number = 4
	fieldReqShouldClaim       protowire.Number = 5
	fieldReqTopic             protowire.Number = 6
	fieldReqPublish           protowire.Number = 52
	fieldReqSubscribe         protowire.Number = 53
	fieldReqConsume           protowire.Number = 54
	fieldReqUnsubscribe       protowire.Number = 55
	fieldReqStopDelivery      protowire.Number = 56
	fieldReqStartDelivery     protowire.Number = 57
	fieldReqCloseSubscription protowire.Number = 58

	fieldPublishMsg protowire.Number = 2

	fieldSubscriberID        protowire.Number = 2
	fieldSubCreateOrAttach   protowire.Number = 3
	fieldSubSynchronous      protowire.Number = 4
	fieldSubMessageBound     protowire.Number = 6
	fieldConsumeMsgID        protowire.Number = 3
	fieldMsgBody             protowire.Number = 1
	fieldMsgSrcRegion        protowire.Number = 2
	fieldMsgMsgID            protowire.Number = 3
	fieldSeqLocalComponent   protowire.Number = 1
	fieldSeqRemoteComponents protowire.Number = 2
	fieldRegionSeqRegion     protowire.Number = 1
	fieldRegionSeqSeqID      protowire.Number = 2
	fieldRespProtocolVersion protowire.Number = 1
	fieldRespStatusCode      protowire.Number = 2
	fieldRespTxnID           protowire.Number = 3
	fieldRespStatusMsg       protowire.Number = 4
	fieldRespMessage         protowire.Number = 5
	fieldRespTopic           protowire.Number = 6
	fieldRespSubscriberID    protowire.Number = 7
)

// skipField tells walkFields to discard the current field.
const skipField = -1

// fieldDecoder consumes the value of one field from b and reports how many
// bytes it used, or skipField.
type fieldDecoder func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, decode fieldDecoder) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := decode(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == skipField {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
		}
		b = b[m:]
	}

	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, ErrWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}

	return v, n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, ErrWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}

	return v, n, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func appendInt32Field(b []byte, num protowire.Number, v int32) []byte {
	return appendVarintField(b, num, uint64(int64(v)))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}

// appendMessageField encodes a nested message produced by enc.
func appendMessageField(b []byte, num protowire.Number, enc func([]byte) []byte) []byte {
	return appendBytesField(b, num, enc(nil))
}

// Messages.

func (s *RegionSpecificSeqID) appendTo(b []byte) []byte {
	b = appendStringField(b, fieldRegionSeqRegion, s.Region)

	return appendVarintField(b, fieldRegionSeqSeqID, s.SeqID)
}

func (s *RegionSpecificSeqID) decode(b []byte) error {
	var haveRegion, haveSeq bool
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRegionSeqRegion:
			v, n, err := consumeBytes(typ, b)
			s.Region, haveRegion = string(v), true

			return n, err
		case fieldRegionSeqSeqID:
			v, n, err := consumeVarint(typ, b)
			s.SeqID, haveSeq = v, true

			return n, err
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return err
	}
	if !haveRegion {
		return fmt.Errorf("%w: region", ErrMissingField)
	}
	if !haveSeq {
		return fmt.Errorf("%w: seqId", ErrMissingField)
	}

	return nil
}

func (m *MessageSeqID) appendTo(b []byte) []byte {
	b = appendVarintField(b, fieldSeqLocalComponent, m.LocalComponent)
	for i := range m.RemoteComponents {
		b = appendMessageField(b, fieldSeqRemoteComponents, m.RemoteComponents[i].appendTo)
	}

	return b
}

func (m *MessageSeqID) decode(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSeqLocalComponent:
			v, n, err := consumeVarint(typ, b)
			m.LocalComponent = v

			return n, err
		case fieldSeqRemoteComponents:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			var c RegionSpecificSeqID
			if err := c.decode(v); err != nil {
				return 0, err
			}
			m.RemoteComponents = append(m.RemoteComponents, c)

			return n, nil
		default:
			return skipField, nil
		}
	})
}

func (m *Message) appendTo(b []byte) []byte {
	b = appendBytesField(b, fieldMsgBody, m.Body)
	if m.SrcRegion != "" {
		b = appendStringField(b, fieldMsgSrcRegion, m.SrcRegion)
	}
	if m.MsgID != nil {
		b = appendMessageField(b, fieldMsgMsgID, m.MsgID.appendTo)
	}

	return b
}

func (m *Message) decode(b []byte) error {
	haveBody := false
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldMsgBody:
			v, n, err := consumeBytes(typ, b)
			m.Body, haveBody = bytes.Clone(v), true

			return n, err
		case fieldMsgSrcRegion:
			v, n, err := consumeBytes(typ, b)
			m.SrcRegion = string(v)

			return n, err
		case fieldMsgMsgID:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			m.MsgID = &MessageSeqID{}

			return n, m.MsgID.decode(v)
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return err
	}
	if !haveBody {
		return fmt.Errorf("%w: body", ErrMissingField)
	}

	return nil
}

// Sub-requests.

func (p *PublishRequest) appendTo(b []byte) []byte {
	return appendMessageField(b, fieldPublishMsg, p.Msg.appendTo)
}

func (p *PublishRequest) decode(b []byte) error {
	haveMsg := false
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldPublishMsg {
			return skipField, nil
		}
		v, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		haveMsg = true

		return n, p.Msg.decode(v)
	})
	if err != nil {
		return err
	}
	if !haveMsg {
		return fmt.Errorf("%w: msg", ErrMissingField)
	}

	return nil
}

func (s *SubscribeRequest) appendTo(b []byte) []byte {
	b = appendStringField(b, fieldSubscriberID, s.SubscriberID)
	b = appendInt32Field(b, fieldSubCreateOrAttach, int32(s.CreateOrAttach))
	if s.Synchronous {
		b = appendVarintField(b, fieldSubSynchronous, protowire.EncodeBool(true))
	}
	if s.MessageBound != 0 {
		b = appendVarintField(b, fieldSubMessageBound, uint64(s.MessageBound))
	}

	return b
}

func (s *SubscribeRequest) decode(b []byte) error {
	s.CreateOrAttach = CreateOrAttachBoth

	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSubscriberID:
			v, n, err := consumeBytes(typ, b)
			s.SubscriberID = string(v)

			return n, err
		case fieldSubCreateOrAttach:
			v, n, err := consumeVarint(typ, b)
			s.CreateOrAttach = CreateOrAttach(int32(v))

			return n, err
		case fieldSubSynchronous:
			v, n, err := consumeVarint(typ, b)
			s.Synchronous = protowire.DecodeBool(v)

			return n, err
		case fieldSubMessageBound:
			v, n, err := consumeVarint(typ, b)
			s.MessageBound = uint32(v)

			return n, err
		default:
			return skipField, nil
		}
	})
}

func (c *ConsumeRequest) appendTo(b []byte) []byte {
	b = appendStringField(b, fieldSubscriberID, c.SubscriberID)

	return appendMessageField(b, fieldConsumeMsgID, c.MsgID.appendTo)
}

func (c *ConsumeRequest) decode(b []byte) error {
	haveMsgID := false
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSubscriberID:
			v, n, err := consumeBytes(typ, b)
			c.SubscriberID = string(v)

			return n, err
		case fieldConsumeMsgID:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			haveMsgID = true

			return n, c.MsgID.decode(v)
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return err
	}
	if !haveMsgID {
		return fmt.Errorf("%w: msgId", ErrMissingField)
	}

	return nil
}

func appendSubscriberOnly(id string) func([]byte) []byte {
	return func(b []byte) []byte {
		return appendStringField(b, fieldSubscriberID, id)
	}
}

func decodeSubscriberOnly(b []byte) (string, error) {
	var id string
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldSubscriberID {
			return skipField, nil
		}
		v, n, err := consumeBytes(typ, b)
		id = string(v)

		return n, err
	})

	return id, err
}

// Envelopes.

func appendRequest(b []byte, r *PubSubRequest) []byte {
	b = appendInt32Field(b, fieldReqProtocolVersion, int32(r.ProtocolVersion))
	b = appendInt32Field(b, fieldReqType, int32(r.Type))
	for _, s := range r.TriedServers {
		b = appendStringField(b, fieldReqTriedServers, s)
	}
	b = appendVarintField(b, fieldReqTxnID, r.TxnID)
	if r.ShouldClaim {
		b = appendVarintField(b, fieldReqShouldClaim, protowire.EncodeBool(true))
	}
	b = appendStringField(b, fieldReqTopic, r.Topic)

	if r.Publish != nil {
		b = appendMessageField(b, fieldReqPublish, r.Publish.appendTo)
	}
	if r.Subscribe != nil {
		b = appendMessageField(b, fieldReqSubscribe, r.Subscribe.appendTo)
	}
	if r.Consume != nil {
		b = appendMessageField(b, fieldReqConsume, r.Consume.appendTo)
	}
	if r.Unsubscribe != nil {
		b = appendMessageField(b, fieldReqUnsubscribe, appendSubscriberOnly(r.Unsubscribe.SubscriberID))
	}
	if r.StopDelivery != nil {
		b = appendMessageField(b, fieldReqStopDelivery, appendSubscriberOnly(r.StopDelivery.SubscriberID))
	}
	if r.StartDelivery != nil {
		b = appendMessageField(b, fieldReqStartDelivery, appendSubscriberOnly(r.StartDelivery.SubscriberID))
	}
	if r.CloseSubscription != nil {
		b = appendMessageField(b, fieldReqCloseSubscription, appendSubscriberOnly(r.CloseSubscription.SubscriberID))
	}

	return b
}

// Presence bits for required envelope fields.
const (
	seenVersion = 1 << iota
	seenType
	seenTxnID
	seenTopic
	seenStatus
)

func checkRequired(seen, want int) error {
	names := []struct {
		bit  int
		name string
	}{
		{seenVersion, "protocolVersion"},
		{seenType, "type"},
		{seenStatus, "statusCode"},
		{seenTxnID, "txnId"},
		{seenTopic, "topic"},
	}
	for _, f := range names {
		if want&f.bit != 0 && seen&f.bit == 0 {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	return nil
}

func decodeRequest(b []byte) (*PubSubRequest, error) {
	r := &PubSubRequest{}
	seen := 0

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldReqProtocolVersion:
			v, n, err := consumeVarint(typ, b)
			r.ProtocolVersion = ProtocolVersion(int32(v))
			seen |= seenVersion

			return n, err
		case fieldReqType:
			v, n, err := consumeVarint(typ, b)
			r.Type = OperationType(int32(v))
			seen |= seenType

			return n, err
		case fieldReqTriedServers:
			v, n, err := consumeBytes(typ, b)
			if err == nil {
				r.TriedServers = append(r.TriedServers, string(v))
			}

			return n, err
		case fieldReqTxnID:
			v, n, err := consumeVarint(typ, b)
			r.TxnID = v
			seen |= seenTxnID

			return n, err
		case fieldReqShouldClaim:
			v, n, err := consumeVarint(typ, b)
			r.ShouldClaim = protowire.DecodeBool(v)

			return n, err
		case fieldReqTopic:
			v, n, err := consumeBytes(typ, b)
			r.Topic = string(v)
			seen |= seenTopic

			return n, err
		case fieldReqPublish:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			r.Publish = &PublishRequest{}

			return n, r.Publish.decode(v)
		case fieldReqSubscribe:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			r.Subscribe = &SubscribeRequest{}

			return n, r.Subscribe.decode(v)
		case fieldReqConsume:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			r.Consume = &ConsumeRequest{}

			return n, r.Consume.decode(v)
		case fieldReqUnsubscribe, fieldReqStopDelivery, fieldReqStartDelivery, fieldReqCloseSubscription:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			id, err := decodeSubscriberOnly(v)
			switch num {
			case fieldReqUnsubscribe:
				r.Unsubscribe = &UnsubscribeRequest{SubscriberID: id}
			case fieldReqStopDelivery:
				r.StopDelivery = &StopDeliveryRequest{SubscriberID: id}
			case fieldReqStartDelivery:
				r.StartDelivery = &StartDeliveryRequest{SubscriberID: id}
			default:
				r.CloseSubscription = &CloseSubscriptionRequest{SubscriberID: id}
			}

			return n, err
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if err := checkRequired(seen, seenVersion|seenType|seenTxnID|seenTopic); err != nil {
		return nil, err
	}

	return r, nil
}

func appendResponse(b []byte, r *PubSubResponse) []byte {
	b = appendInt32Field(b, fieldRespProtocolVersion, int32(r.ProtocolVersion))
	b = appendInt32Field(b, fieldRespStatusCode, int32(r.StatusCode))
	b = appendVarintField(b, fieldRespTxnID, r.TxnID)
	if r.StatusMsg != "" {
		b = appendStringField(b, fieldRespStatusMsg, r.StatusMsg)
	}
	if r.Message != nil {
		b = appendMessageField(b, fieldRespMessage, r.Message.appendTo)
	}
	if r.Topic != "" {
		b = appendStringField(b, fieldRespTopic, r.Topic)
	}
	if r.SubscriberID != "" {
		b = appendStringField(b, fieldRespSubscriberID, r.SubscriberID)
	}

	return b
}

func decodeResponse(b []byte) (*PubSubResponse, error) {
	r := &PubSubResponse{}
	seen := 0

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRespProtocolVersion:
			v, n, err := consumeVarint(typ, b)
			r.ProtocolVersion = ProtocolVersion(int32(v))
			seen |= seenVersion

			return n, err
		case fieldRespStatusCode:
			v, n, err := consumeVarint(typ, b)
			r.StatusCode = StatusCode(int32(v))
			seen |= seenStatus

			return n, err
		case fieldRespTxnID:
			v, n, err := consumeVarint(typ, b)
			r.TxnID = v
			seen |= seenTxnID

			return n, err
		case fieldRespStatusMsg:
			v, n, err := consumeBytes(typ, b)
			r.StatusMsg = string(v)

			return n, err
		case fieldRespMessage:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			r.Message = &Message{}

			return n, r.Message.decode(v)
		case fieldRespTopic:
			v, n, err := consumeBytes(typ, b)
			r.Topic = string(v)

			return n, err
		case fieldRespSubscriberID:
			v, n, err := consumeBytes(typ, b)
			r.SubscriberID = string(v)

			return n, err
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if err := checkRequired(seen, seenVersion|seenStatus|seenTxnID); err != nil {
		return nil, err
	}

	return r, nil
}
