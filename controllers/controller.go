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

import (
	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
)

// Controller handles the OpenFlow messages of a single switch connection.
// There is one instance of each Controller per connection.
type Controller interface {
	Name() string
	Initialize() error
	HandleMessage(msg ofp13.OFMessage) error
}

// Sender transmits an outbound message to the switch owning a connection.
// Send fails with an error wrapping ErrTransmitFailed once the connection
// is closed or broken.
type Sender interface {
	Send(msg ofp13.OFMessage) error
}

// Disconnecter is implemented by controllers that need to know when the
// transport tears the connection down.
type Disconnecter interface {
	OnDisconnect()
}
