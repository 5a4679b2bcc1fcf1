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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HostPacketsTotal mirrors the per-source traffic counters.
	HostPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subnet_controller_host_packets_total",
			Help: "Packet-ins processed per IPv4 source address",
		},
		[]string{"source"},
	)

	// PortPacketsTotal mirrors the per-ingress-port traffic counters.
	PortPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subnet_controller_port_packets_total",
			Help: "Packet-ins processed per switch ingress port",
		},
		[]string{"port"},
	)

	// DecisionsTotal counts forwarding decisions by reason.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subnet_controller_decisions_total",
			Help: "Forwarding decisions taken, by reason",
		},
		[]string{"reason"},
	)

	// MessagesSentTotal counts OpenFlow messages written to switches.
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subnet_controller_messages_sent_total",
			Help: "OpenFlow messages sent to switches, by message type",
		},
		[]string{"type"},
	)

	// SessionsActive is the number of sessions in the Active state.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subnet_controller_sessions_active",
			Help: "Switch sessions that completed negotiation",
		},
	)
)
