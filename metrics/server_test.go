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

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func TestServer(t *testing.T) {
	addr := freeAddr(t)
	server := NewServer(addr, "/custom")
	server.Start()
	defer server.Stop(context.Background())

	DecisionsTotal.WithLabelValues("SameSubnet").Inc()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/custom")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		buf, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(buf)
		return true
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "subnet_controller_decisions_total")
}

func TestServerDefaultPath(t *testing.T) {
	server := NewServer(":0", "")
	assert.Equal(t, "/metrics", server.path)

	// stopping a server that never started is a no-op
	assert.NoError(t, server.Stop(context.Background()))
}
