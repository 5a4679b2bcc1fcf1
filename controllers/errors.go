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

package controllers

import "errors"

var (
	// ErrSessionNotReady is returned for a packet-in that arrives before the
	// session finished negotiation and installed its table-miss flow.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrTransmitFailed is returned when a message could not be written to
	// the switch connection. It is fatal to the session.
	ErrTransmitFailed = errors.New("transmit failed")

	// ErrParseFailure is returned for malformed protocol messages or frames.
	ErrParseFailure = errors.New("parse failure")

	// ErrUnsupportedProtocolVersion is returned when the switch does not
	// speak OpenFlow 1.3. It is fatal to the session.
	ErrUnsupportedProtocolVersion = errors.New("unsupported protocol version")
)

// IsFatal reports whether err ends the session that produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTransmitFailed) || errors.Is(err, ErrUnsupportedProtocolVersion)
}
