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
	"net"
	"sync"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
)

const (
	// DefaultListenAddr is the IANA assigned OpenFlow port.
	DefaultListenAddr = ":6653"
)

// Server accepts switch connections and runs one OFConn per connection,
// each in its own goroutine.
type Server struct {
	factory ControllerFactory

	mu       sync.Mutex
	listener net.Listener
	conns    map[*OFConn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(factory ControllerFactory) *Server {
	return &Server{
		factory: factory,
		conns:   make(map[*OFConn]struct{}),
	}
}

// ListenAndServe listens on addr and serves connections until Close.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(listener)
}

// Serve accepts connections on listener until Close is called, then
// returns nil.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	klog.Infof("listening for switches on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			klog.Errorf("error accepting TCP connections: %v", err)
			continue
		}

		go s.HandleConn(conn)
	}
}

// HandleConn serves a single switch connection and returns when it ends.
func (s *Server) HandleConn(conn net.Conn) {
	ofconn := NewOFConn(conn, s.factory)
	if !s.track(ofconn) {
		ofconn.Close()
		return
	}
	defer s.untrack(ofconn)

	klog.Infof("switch connected from %s", conn.RemoteAddr())

	err := ofconn.InitializeControllers()
	if err != nil {
		klog.Errorf("error initializing controllers: %v", err)
		ofconn.disconnect()
		return
	}

	ofconn.ReadMessages()
}

// Close stops accepting connections, closes every open connection and waits
// for their handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var errs []error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for ofconn := range s.conns {
		if err := ofconn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	return utilerrors.NewAggregate(errs)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(ofconn *OFConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.conns[ofconn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(ofconn *OFConn) {
	s.mu.Lock()
	delete(s.conns, ofconn)
	s.mu.Unlock()

	s.wg.Done()
}
