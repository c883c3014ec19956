// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package message defines the wire format shared by every transport: a
// single tagged record carried in both directions of a peer connection.
package message

import "encoding/json"

// Reserved event tags. Any other value in Event is a user event.
const (
	EventRPC            = "rpc"
	EventSubscription   = "subscription"
	EventUnsubscription = "unsubscription"
	EventRPCResponse    = "rpc-response"
	EventPublication    = "publication"
	EventConnectReply   = "connect-reply"
)

// Message is the tagged record exchanged in both directions. Result and
// Value are kept as json.RawMessage, undecoded. Fields not declared on
// this struct are dropped when the JSON codec decodes a frame; they are
// not carried through middleware.
type Message struct {
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Fn    string `json:"fn,omitempty"`
	Args  []any  `json:"args,omitempty"`

	Result json.RawMessage `json:"result,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`

	// PeerID is only present on the handshake frame.
	PeerID string `json:"peer-id,omitempty"`

	// Type carries the outbound connect-reply's discriminator; inbound
	// messages use Event for everything else.
	Type    string `json:"type,omitempty"`
	Success bool   `json:"success,omitempty"`
}

// IsReserved reports whether tag names one of the kinds classification
// treats specially, as opposed to a user event.
func IsReserved(tag string) bool {
	switch tag {
	case EventRPC, EventSubscription, EventUnsubscription, EventRPCResponse, EventPublication, EventConnectReply:
		return true
	default:
		return false
	}
}

// ConnectReply builds the handshake acknowledgement sent once per peer.
func ConnectReply() *Message {
	return &Message{Type: EventConnectReply, Success: true}
}

// RPCResult builds a successful rpc-response.
func RPCResult(id string, result any) (*Message, error) {
	enc, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Message{Event: EventRPCResponse, ID: id, Result: enc}, nil
}

// RPCError builds a failed rpc-response.
func RPCError(id string, errStr string) *Message {
	return &Message{Event: EventRPCResponse, ID: id, Error: errStr}
}

// Publication builds one subscription value envelope.
func Publication(subID string, value any) (*Message, error) {
	enc, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &Message{Event: EventPublication, ID: subID, Value: enc}, nil
}
