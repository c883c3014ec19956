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

package message

import "encoding/json"

// Codec turns a single frame's bytes into a Message and back. A
// listener picks one Codec implementation via its packet-format
// option; the same codec runs in both directions.
type Codec interface {
	Name() string
	Decode(frame []byte) (*Message, error)
	Encode(msg *Message) ([]byte, error)
}

// JSONCodec is the default self-describing tagged format: plain JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Decode(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Codecs is the registry of packet formats a listener can select by
// name. Only "json" ships with an implementation; a second,
// transit-like tagged format is named in the wire spec but not
// required by anything this expansion builds, so its slot is left
// for a caller to register rather than faked here.
var Codecs = map[string]Codec{
	"json": JSONCodec{},
}
