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

package openflow

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/kube-ovs/subnet-controller/controllers"
	"github.com/kube-ovs/subnet-controller/metrics"
	"github.com/kube-ovs/subnet-controller/openflow/protocol"

	"k8s.io/klog/v2"
)

// ControllerFactory builds the controllers serving one connection. sender
// writes to that connection.
type ControllerFactory func(sender controllers.Sender) []controllers.Controller

// OFConn handles message processes coming from a specific connection
// There should be one instance of OFConn per connection from the switch
type OFConn struct {
	conn        net.Conn
	controllers []controllers.Controller

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ controllers.Sender = &OFConn{}

func NewOFConn(conn net.Conn, factory ControllerFactory) *OFConn {
	of := &OFConn{
		conn: conn,
	}
	of.controllers = factory(of)

	return of
}

func (of *OFConn) InitializeControllers() error {
	for _, controller := range of.controllers {
		err := controller.Initialize()
		if err != nil {
			return fmt.Errorf("error initializing controller %q, err: %w", controller.Name(), err)
		}
	}

	return nil
}

// Send serializes msg and writes it to the switch.
func (of *OFConn) Send(msg ofp13.OFMessage) error {
	buf := msg.Serialize()

	of.writeMu.Lock()
	_, err := of.conn.Write(buf)
	of.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: writing to %s: %v", controllers.ErrTransmitFailed, of.conn.RemoteAddr(), err)
	}

	metrics.MessagesSentTotal.WithLabelValues(protocol.MessageTypeName(buf[1])).Inc()
	return nil
}

// Close closes the underlying connection. It is safe to call more than once.
func (of *OFConn) Close() error {
	of.closeOnce.Do(func() {
		of.closeErr = of.conn.Close()
	})

	return of.closeErr
}

// ReadMessages reads messages until the connection ends or a controller
// reports an error that is fatal to the session, dispatching them in
// arrival order. Controllers are told about the disconnect before it
// returns.
func (of *OFConn) ReadMessages() {
	defer of.disconnect()
	klog.Infof("reading messages from connection %s", of.conn.RemoteAddr())

	for {
		buf, err := protocol.ReadMessage(of.conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				klog.Errorf("error reading connection: %v", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(buf)
		if err != nil {
			if errors.Is(err, controllers.ErrParseFailure) {
				klog.Errorf("dropping message: %v", err)
			} else {
				klog.V(4).Infof("dropping message: %v", err)
			}
			continue
		}

		klog.V(4).Infof("received message %T", msg)

		if err := of.DispatchToControllers(msg); err != nil {
			klog.Errorf("closing connection %s: %v", of.conn.RemoteAddr(), err)
			return
		}
	}
}

// DispatchToControllers sends the OFMessage to each controller. Only errors
// fatal to the session are returned; anything else is logged and the
// message dropped.
func (of *OFConn) DispatchToControllers(msg ofp13.OFMessage) error {
	for _, controller := range of.controllers {
		err := controller.HandleMessage(msg)
		if err == nil {
			continue
		}

		if controllers.IsFatal(err) {
			return fmt.Errorf("%q controller: %w", controller.Name(), err)
		}

		klog.Errorf("error handling message from %q controller, err: %v", controller.Name(), err)
	}

	return nil
}

func (of *OFConn) disconnect() {
	if err := of.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		klog.Errorf("error closing connection: %v", err)
	}

	for _, controller := range of.controllers {
		if d, ok := controller.(controllers.Disconnecter); ok {
			d.OnDisconnect()
		}
	}
}
