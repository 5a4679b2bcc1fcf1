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
	"fmt"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/kube-ovs/subnet-controller/controllers"

	"k8s.io/klog/v2"
)

const (
	tableClassification = 0

	priorityTableMiss = 0
)

// FlowRule is a flow table entry. It is built once, sent once and never
// modified afterwards.
type FlowRule struct {
	TableID  uint8
	Priority uint16
	Match    *ofp13.OfpMatch
	Actions  []Action
}

// TableMissRule returns the lowest priority match-all rule that sends every
// unmatched packet to the controller unbuffered.
func TableMissRule() FlowRule {
	return FlowRule{
		TableID:  tableClassification,
		Priority: priorityTableMiss,
		Match:    ofp13.NewOfpMatch(),
		Actions:  []Action{ToController()},
	}
}

// Instructions wraps the rule's actions in a single apply-actions
// instruction.
func (r FlowRule) Instructions() []ofp13.OfpInstruction {
	instruction := ofp13.NewOfpInstructionActions(ofp13.OFPIT_APPLY_ACTIONS)
	for _, action := range OfpActions(r.Actions) {
		instruction.Append(action)
	}

	return []ofp13.OfpInstruction{instruction}
}

// FlowMod returns the OFPFC_ADD flow-mod installing the rule.
func (r FlowRule) FlowMod() *ofp13.OfpFlowMod {
	match := r.Match
	if match == nil {
		match = ofp13.NewOfpMatch()
	}

	return ofp13.NewOfpFlowModAdd(0, 0, r.TableID, r.Priority, 0, match, r.Instructions())
}

// Installer programs flow rules through a session's sender.
type Installer struct{}

func NewInstaller() *Installer {
	return &Installer{}
}

// InstallTableMiss sends the table-miss flow-mod. It does not wait for the
// switch to acknowledge it and does not retry; every call sends a new
// flow-mod.
func (i *Installer) InstallTableMiss(sender controllers.Sender) error {
	return i.Install(sender, TableMissRule())
}

// Install sends a single flow rule.
func (i *Installer) Install(sender controllers.Sender, rule FlowRule) error {
	if err := sender.Send(rule.FlowMod()); err != nil {
		return fmt.Errorf("error installing flow in table %d with priority %d: %w",
			rule.TableID, rule.Priority, err)
	}

	klog.V(2).Infof("installed flow table=%d priority=%d actions=%v", rule.TableID, rule.Priority, rule.Actions)
	return nil
}
