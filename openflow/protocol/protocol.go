/*
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/kube-ovs/subnet-controller/controllers"
)

const (
	// Version13 is the wire version of OpenFlow 1.3, the only version
	// this controller speaks.
	Version13 uint8 = 4

	// HeaderLen is the size of ofp_header.
	HeaderLen = 8
)

// ErrUnsupportedMessage is returned by ParseMessage for message types the
// codec does not decode.
var ErrUnsupportedMessage = errors.New("unsupported message type")

// MessageLength returns the total message length carried in an OF header.
func MessageLength(header []byte) uint16 {
	return binary.BigEndian.Uint16(header[2:4])
}

// ReadMessage reads exactly one OpenFlow message from r.
func ReadMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	msgLen := int(MessageLength(header))
	if msgLen < HeaderLen {
		return nil, fmt.Errorf("%w: message length %d shorter than header", controllers.ErrParseFailure, msgLen)
	}

	buf := make([]byte, msgLen)
	copy(buf, header)
	if _, err := io.ReadFull(r, buf[HeaderLen:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return buf, nil
}

// ParseMessage decodes a single framed message. The codec indexes into the
// buffer without bounds checks, so a panic while decoding is reported as
// ErrParseFailure instead of taking the process down.
func ParseMessage(buf []byte) (msg ofp13.OFMessage, err error) {
	if len(buf) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than header", controllers.ErrParseFailure, len(buf))
	}

	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = fmt.Errorf("%w: type %d: %v", controllers.ErrParseFailure, buf[1], r)
		}
	}()

	msg = ofp13.Parse(buf)
	if msg == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMessage, buf[1])
	}

	return msg, nil
}

// NegotiateVersion returns the version both sides speak given the version
// advertised by the peer's hello.
func NegotiateVersion(peer uint8) (uint8, error) {
	version := peer
	if version > Version13 {
		version = Version13
	}

	if version != Version13 {
		return 0, fmt.Errorf("%w: switch speaks version %d, need %d",
			controllers.ErrUnsupportedProtocolVersion, peer, Version13)
	}

	return version, nil
}

// InPort returns the ingress port carried in a packet-in's match.
func InPort(msg *ofp13.OfpPacketIn) (uint32, bool) {
	if msg.Match == nil {
		return 0, false
	}

	for _, field := range msg.Match.OxmFields {
		if inPort, ok := field.(*ofp13.OxmInPort); ok {
			return inPort.Value, true
		}
	}

	return 0, false
}

// ErrorMsg is an OFPT_ERROR whose length covers only the header, type, code
// and data. gofc sizes its error messages 4 bytes longer than the body it
// writes, which would put trailing zeros into the data.
type ErrorMsg struct {
	*ofp13.OfpErrorMsg
}

func (m *ErrorMsg) Size() int {
	return HeaderLen + 4 + len(m.Data)
}

func (m *ErrorMsg) Serialize() []byte {
	m.Header.Length = uint16(m.Size())

	buf := make([]byte, m.Size())
	copy(buf, m.Header.Serialize())
	binary.BigEndian.PutUint16(buf[HeaderLen:], m.Type)
	binary.BigEndian.PutUint16(buf[HeaderLen+2:], m.Code)
	copy(buf[HeaderLen+4:], m.Data)
	return buf
}

// HelloFailed builds the error a controller sends before closing a
// connection whose version could not be negotiated.
func HelloFailed(reason string) *ErrorMsg {
	msg := ofp13.NewOfpErrorMsg()
	msg.Type = ofp13.OFPET_HELLO_FAILED
	msg.Code = ofp13.OFPHFC_INCOMPATIBLE
	msg.Data = []byte(reason)
	return &ErrorMsg{OfpErrorMsg: msg}
}

var messageTypeNames = map[uint8]string{
	ofp13.OFPT_HELLO:            "hello",
	ofp13.OFPT_ERROR:            "error",
	ofp13.OFPT_ECHO_REQUEST:     "echo_request",
	ofp13.OFPT_ECHO_REPLY:       "echo_reply",
	ofp13.OFPT_FEATURES_REQUEST: "features_request",
	ofp13.OFPT_FEATURES_REPLY:   "features_reply",
	ofp13.OFPT_PACKET_IN:        "packet_in",
	ofp13.OFPT_PACKET_OUT:       "packet_out",
	ofp13.OFPT_FLOW_MOD:         "flow_mod",
}

// MessageTypeName returns a short name for an OF message type.
func MessageTypeName(t uint8) string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}

	return "other"
}
