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

package flows

import (
	"strconv"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
)

// ActionType tags the variant held by an Action.
type ActionType int

const (
	// ActionDrop contributes nothing to the wire action list.
	ActionDrop ActionType = iota
	// ActionOutput sends the packet to a port or reserved port.
	ActionOutput
)

// Action is a forwarding action attached to a flow rule or packet-out.
type Action struct {
	Type   ActionType
	Port   uint32
	MaxLen uint16
}

// Output returns an action sending packets to port. maxLen only matters
// for OFPP_CONTROLLER.
func Output(port uint32, maxLen uint16) Action {
	return Action{Type: ActionOutput, Port: port, MaxLen: maxLen}
}

// Flood outputs on every port except the ingress port.
func Flood() Action {
	return Output(ofp13.OFPP_FLOOD, 0)
}

// ToController sends whole packets to the controller without buffering
// them on the switch.
func ToController() Action {
	return Output(ofp13.OFPP_CONTROLLER, ofp13.OFPCML_NO_BUFFER)
}

// Drop is the explicit form of an empty action list.
func Drop() Action {
	return Action{Type: ActionDrop}
}

func (a Action) String() string {
	switch a.Type {
	case ActionOutput:
		switch a.Port {
		case ofp13.OFPP_FLOOD:
			return "output:flood"
		case ofp13.OFPP_CONTROLLER:
			return "output:controller"
		}
		return "output:" + strconv.FormatUint(uint64(a.Port), 10)
	default:
		return "drop"
	}
}

// OfpActions converts actions to their wire form. Drop actions are omitted,
// so a list made only of drops serialises as an empty action list.
func OfpActions(actions []Action) []ofp13.OfpAction {
	ofpActions := []ofp13.OfpAction{}
	for _, action := range actions {
		if action.Type != ActionOutput {
			continue
		}
		ofpActions = append(ofpActions, ofp13.NewOfpActionOutput(action.Port, action.MaxLen))
	}

	return ofpActions
}
