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
	"context"
	"net"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	defaultSwitchPort = "6653"
)

// DialSwitch connects to a switch listening for controllers (passive
// "ptcp:" mode). A missing port defaults to 6653.
func DialSwitch(ctx context.Context, addr string) (net.Conn, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultSwitchPort)
	}

	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", addr)
}

// DialAndServe keeps a connection to the switch at addr open until stopCh
// is closed, redialing every retry after the connection fails or ends.
// Each connection starts a new session.
func (s *Server) DialAndServe(addr string, retry time.Duration, stopCh <-chan struct{}) {
	wait.Until(func() {
		ctx, cancel := context.WithTimeout(context.Background(), retry)
		conn, err := DialSwitch(ctx, addr)
		cancel()
		if err != nil {
			klog.Errorf("error dialing switch %s: %v", addr, err)
			return
		}

		s.HandleConn(conn)
	}, retry, stopCh)
}
