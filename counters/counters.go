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

package counters

import (
	"net"
	"strconv"
	"sync"

	"github.com/kube-ovs/subnet-controller/metrics"
)

// TrafficCounters tracks packet-ins per IPv4 source and per ingress port.
// It is shared by every switch session for the lifetime of the process and
// its counts only ever grow.
type TrafficCounters struct {
	mu    sync.RWMutex
	hosts map[string]uint64
	ports map[uint32]uint64
}

// Snapshot is a point in time copy of the counters.
type Snapshot struct {
	Hosts map[string]uint64
	Ports map[uint32]uint64
}

func NewTrafficCounters() *TrafficCounters {
	return &TrafficCounters{
		hosts: make(map[string]uint64),
		ports: make(map[uint32]uint64),
	}
}

// IncrementHost counts one packet from ip and returns the new count.
func (c *TrafficCounters) IncrementHost(ip net.IP) uint64 {
	key := ip.String()

	c.mu.Lock()
	c.hosts[key]++
	count := c.hosts[key]
	c.mu.Unlock()

	metrics.HostPacketsTotal.WithLabelValues(key).Inc()
	return count
}

// IncrementPort counts one packet received on port and returns the new count.
func (c *TrafficCounters) IncrementPort(port uint32) uint64 {
	c.mu.Lock()
	c.ports[port]++
	count := c.ports[port]
	c.mu.Unlock()

	metrics.PortPacketsTotal.WithLabelValues(strconv.FormatUint(uint64(port), 10)).Inc()
	return count
}

// Host returns the number of packets counted for ip.
func (c *TrafficCounters) Host(ip net.IP) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hosts[ip.String()]
}

// Port returns the number of packets counted for port.
func (c *TrafficCounters) Port(port uint32) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ports[port]
}

func (c *TrafficCounters) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := Snapshot{
		Hosts: make(map[string]uint64, len(c.hosts)),
		Ports: make(map[uint32]uint64, len(c.ports)),
	}
	for host, count := range c.hosts {
		snapshot.Hosts[host] = count
	}
	for port, count := range c.ports {
		snapshot.Ports[port] = count
	}

	return snapshot
}
