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

package echo

import (
	"errors"
	"fmt"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/kube-ovs/subnet-controller/controllers"

	"k8s.io/klog/v2"
)

// echoController answers the switch's keepalives.
type echoController struct {
	sender controllers.Sender
}

var _ controllers.Controller = &echoController{}

func NewEchoController(sender controllers.Sender) controllers.Controller {
	return &echoController{sender: sender}
}

func (e *echoController) Name() string {
	return "echo"
}

func (e *echoController) Initialize() error {
	if e.sender == nil {
		return errors.New("controller must have a registered connection to the switch")
	}

	return nil
}

func (e *echoController) HandleMessage(msg ofp13.OFMessage) error {
	header, ok := msg.(*ofp13.OfpHeader)
	if !ok {
		return nil
	}

	switch header.Type {
	case ofp13.OFPT_ECHO_REQUEST:
		echoReply := ofp13.NewOfpEchoReply()
		echoReply.Xid = header.Xid
		if err := e.sender.Send(echoReply); err != nil {
			return fmt.Errorf("error sending echo reply: %w", err)
		}

	case ofp13.OFPT_ECHO_REPLY:
		klog.V(4).Info("received echo reply from switch")
	}

	return nil
}
