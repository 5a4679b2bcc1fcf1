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

package session

import (
	"fmt"
	"sync"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/kube-ovs/subnet-controller/controllers"
	"github.com/kube-ovs/subnet-controller/controllers/flows"
	"github.com/kube-ovs/subnet-controller/forwarding"
	"github.com/kube-ovs/subnet-controller/metrics"
	"github.com/kube-ovs/subnet-controller/openflow/protocol"

	"k8s.io/klog/v2"
)

// State is the lifecycle state of a switch session.
type State int

const (
	StateConnecting State = iota
	StateNegotiated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateNegotiated:
		return "Negotiated"
	case StateActive:
		return "Active"
	default:
		return "Closed"
	}
}

// TableMissInstaller programs the table-miss rule of a switch.
type TableMissInstaller interface {
	InstallTableMiss(sender controllers.Sender) error
}

// Decider takes the forwarding decision for a packet-in.
type Decider interface {
	Decide(pkt forwarding.InboundPacket) forwarding.Decision
}

type Options struct {
	// ReleaseDroppedBuffers frees packets the switch buffered when they are
	// dropped, by sending a packet-out without actions.
	ReleaseDroppedBuffers bool
}

// Session drives one switch connection through
// Connecting -> Negotiated -> Active -> Closed. It holds a non-owning
// reference to the connection's sender; the transport owns the connection.
// Messages must be handed to a Session from a single goroutine, in arrival
// order.
type Session struct {
	installer TableMissInstaller
	decider   Decider
	opts      Options

	mu         sync.Mutex
	sender     controllers.Sender
	state      State
	version    uint8
	datapathID uint64
}

var _ controllers.Controller = &Session{}
var _ controllers.Disconnecter = &Session{}

func NewSession(sender controllers.Sender, installer TableMissInstaller, decider Decider, opts Options) *Session {
	return &Session{
		sender:    sender,
		installer: installer,
		decider:   decider,
		opts:      opts,
		state:     StateConnecting,
	}
}

func (s *Session) Name() string {
	return "session"
}

// Initialize starts the handshake.
func (s *Session) Initialize() error {
	return s.OnConnect()
}

func (s *Session) HandleMessage(msg ofp13.OFMessage) error {
	switch m := msg.(type) {
	case *ofp13.OfpHello:
		return s.OnHello(m)
	case *ofp13.OfpSwitchFeatures:
		return s.OnFeaturesReceived(m)
	case *ofp13.OfpPacketIn:
		return s.OnPacketIn(m)
	case *ofp13.OfpErrorMsg:
		klog.Errorf("switch %016x reported error type=%d code=%d", s.DatapathID(), m.Type, m.Code)
	}

	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version is the negotiated OpenFlow version, 0 until negotiated.
func (s *Session) Version() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) DatapathID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datapathID
}

// OnConnect sends the controller's hello.
func (s *Session) OnConnect() error {
	if err := s.send(ofp13.NewOfpHello()); err != nil {
		return fmt.Errorf("error sending hello: %w", err)
	}

	klog.Info("hello sent, waiting for switch hello")
	return nil
}

// OnHello negotiates the protocol version and asks the switch for its
// features. A switch that cannot speak OpenFlow 1.3 is told so and the
// session is closed.
func (s *Session) OnHello(msg *ofp13.OfpHello) error {
	if state := s.State(); state != StateConnecting {
		klog.V(2).Infof("ignoring hello in state %s", state)
		return nil
	}

	version, err := protocol.NegotiateVersion(msg.Header.Version)
	if err != nil {
		if sendErr := s.send(protocol.HelloFailed(err.Error())); sendErr != nil {
			klog.Errorf("error sending hello failure: %v", sendErr)
		}
		s.close()
		return err
	}

	s.mu.Lock()
	s.version = version
	s.mu.Unlock()

	// hello received, next thing to do is send a feature request message
	// to receive the data path ID of the switch
	if err := s.send(ofp13.NewOfpFeaturesRequest()); err != nil {
		return fmt.Errorf("error sending features request: %w", err)
	}

	return nil
}

// OnFeaturesReceived completes negotiation and installs the table-miss
// rule. The session becomes Active once the flow-mod has been written; the
// switch's acknowledgment is not awaited.
func (s *Session) OnFeaturesReceived(msg *ofp13.OfpSwitchFeatures) error {
	if state := s.State(); state != StateConnecting {
		klog.V(2).Infof("ignoring features reply from switch %016x in state %s", msg.DatapathId, state)
		return nil
	}

	if msg.Header.Version != protocol.Version13 {
		s.close()
		return fmt.Errorf("%w: features reply with version %d",
			controllers.ErrUnsupportedProtocolVersion, msg.Header.Version)
	}

	s.mu.Lock()
	s.datapathID = msg.DatapathId
	s.version = protocol.Version13
	sender := s.sender
	s.mu.Unlock()

	s.setState(StateNegotiated)
	klog.Infof("switch %016x negotiated OpenFlow 1.3, tables=%d buffers=%d",
		msg.DatapathId, msg.NTables, msg.NBuffers)

	if err := s.installer.InstallTableMiss(sender); err != nil {
		s.close()
		return fmt.Errorf("error installing table-miss flow on switch %016x: %w", msg.DatapathId, err)
	}

	s.setState(StateActive)
	return nil
}

// OnPacketIn runs the forwarding decision for a packet-in and emits a
// packet-out unless the packet is dropped.
func (s *Session) OnPacketIn(msg *ofp13.OfpPacketIn) error {
	if state := s.State(); state != StateActive {
		return fmt.Errorf("%w: packet-in received in state %s", controllers.ErrSessionNotReady, state)
	}

	inPort, ok := protocol.InPort(msg)
	if !ok {
		return fmt.Errorf("%w: packet-in without in_port", controllers.ErrParseFailure)
	}

	pkt := forwarding.InboundPacket{
		InPort:   inPort,
		BufferID: msg.BufferId,
		Data:     msg.Data,
	}

	decision := s.decider.Decide(pkt)
	if decision.Drop() {
		if s.opts.ReleaseDroppedBuffers && pkt.BufferID != ofp13.OFP_NO_BUFFER {
			return s.packetOut(pkt, nil)
		}

		return nil
	}

	return s.packetOut(pkt, decision.Actions)
}

// OnDisconnect releases the session's reference to the connection.
func (s *Session) OnDisconnect() {
	s.close()
	klog.Infof("switch %016x disconnected", s.DatapathID())
}

func (s *Session) packetOut(pkt forwarding.InboundPacket, actions []flows.Action) error {
	// the frame only travels back when the switch did not buffer it
	var data []byte
	if pkt.BufferID == ofp13.OFP_NO_BUFFER {
		data = pkt.Data
	}

	out := ofp13.NewOfpPacketOut(pkt.BufferID, pkt.InPort, flows.OfpActions(actions), data)
	if err := s.send(out); err != nil {
		return fmt.Errorf("error sending packet-out for port %d: %w", pkt.InPort, err)
	}

	return nil
}

func (s *Session) send(msg ofp13.OFMessage) error {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()

	if sender == nil {
		return fmt.Errorf("%w: session closed", controllers.ErrTransmitFailed)
	}

	if err := sender.Send(msg); err != nil {
		s.close()
		return err
	}

	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActive && state != StateActive {
		metrics.SessionsActive.Dec()
	}
	if s.state != StateActive && state == StateActive {
		metrics.SessionsActive.Inc()
	}

	s.state = state
}

func (s *Session) close() {
	s.setState(StateClosed)

	s.mu.Lock()
	s.sender = nil
	s.mu.Unlock()
}
