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

package forwarding

import (
	"errors"
	"net"

	"github.com/kube-ovs/subnet-controller/controllers/flows"
	"github.com/kube-ovs/subnet-controller/metrics"
	"github.com/kube-ovs/subnet-controller/packet"

	"k8s.io/klog/v2"
)

// DefaultSubnet is the reference subnet used when none is configured.
const DefaultSubnet = "10.0.0.0/24"

// Reason explains why a decision was taken.
type Reason int

const (
	ReasonNonIPv4 Reason = iota
	ReasonSameSubnet
	ReasonCrossSubnet
	ReasonParseFailure
)

func (r Reason) String() string {
	switch r {
	case ReasonSameSubnet:
		return "SameSubnet"
	case ReasonCrossSubnet:
		return "CrossSubnet"
	case ReasonParseFailure:
		return "ParseFailure"
	default:
		return "NonIPv4"
	}
}

// InboundPacket is the part of a packet-in the engine decides on. It lives
// for a single decision.
type InboundPacket struct {
	InPort   uint32
	BufferID uint32
	Data     []byte
}

// Decision is the outcome of Decide. An empty action list means drop.
type Decision struct {
	Actions     []flows.Action
	Reason      Reason
	Source      net.IP
	Destination net.IP
}

// Drop reports whether the packet is to be dropped.
func (d Decision) Drop() bool {
	return len(d.Actions) == 0
}

// Counter records traffic per source address and ingress port.
type Counter interface {
	IncrementHost(ip net.IP) uint64
	IncrementPort(port uint32) uint64
}

// Engine floods IPv4 traffic whose source and destination both sit in the
// reference subnet and drops everything else.
type Engine struct {
	subnet   *net.IPNet
	counters Counter
}

func NewEngine(subnet *net.IPNet, counters Counter) *Engine {
	return &Engine{
		subnet:   subnet,
		counters: counters,
	}
}

// ParseSubnet parses an IPv4 CIDR for use as the reference subnet.
func ParseSubnet(cidr string) (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}

	if ipnet.IP.To4() == nil {
		return nil, errors.New("reference subnet must be an IPv4 network")
	}

	return ipnet, nil
}

// Decide classifies pkt. Counters are updated once for every packet an IPv4
// source address could be read from, whatever the outcome; frames without
// one leave both counters untouched.
func (e *Engine) Decide(pkt InboundPacket) Decision {
	decision := e.classify(pkt)
	metrics.DecisionsTotal.WithLabelValues(decision.Reason.String()).Inc()

	klog.V(2).Infof("packet received on port %d: src=%v dst=%v reason=%s actions=%v",
		pkt.InPort, decision.Source, decision.Destination, decision.Reason, decision.Actions)
	return decision
}

func (e *Engine) classify(pkt InboundPacket) Decision {
	frame, err := packet.Decode(pkt.Data)
	if err != nil {
		if errors.Is(err, packet.ErrMalformedIPv4) {
			klog.V(2).Infof("dropping malformed IPv4 packet on port %d: %v", pkt.InPort, err)
			return Decision{Reason: ReasonParseFailure}
		}

		return Decision{Reason: ReasonNonIPv4}
	}

	if frame.IPv4 == nil {
		return Decision{Reason: ReasonNonIPv4}
	}

	decision := Decision{
		Source:      frame.IPv4.SrcIP,
		Destination: frame.IPv4.DstIP,
		Reason:      ReasonCrossSubnet,
	}

	if e.subnet.Contains(decision.Source) && e.subnet.Contains(decision.Destination) {
		decision.Actions = []flows.Action{flows.Flood()}
		decision.Reason = ReasonSameSubnet
	}

	hostCount := e.counters.IncrementHost(decision.Source)
	portCount := e.counters.IncrementPort(pkt.InPort)
	klog.V(4).Infof("host %s count=%d, port %d count=%d", decision.Source, hostCount, pkt.InPort, portCount)

	return decision
}
