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

package packet

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	// ErrMalformedEthernet is returned when the frame has no decodable
	// Ethernet header.
	ErrMalformedEthernet = errors.New("couldn't get ethernet layer")

	// ErrMalformedIPv4 is returned when the frame claims to carry IPv4 but
	// the IPv4 header does not decode.
	ErrMalformedIPv4 = errors.New("couldn't get ipv4 layer")
)

// Frame holds the layers of a decoded frame the controller cares about.
// IPv4 is nil for frames that do not carry IPv4.
type Frame struct {
	Ethernet *layers.Ethernet
	IPv4     *layers.IPv4
}

// Decode decodes an Ethernet frame and, when present, its IPv4 header.
// 802.1Q tagged frames are followed to the inner EtherType.
func Decode(data []byte) (*Frame, error) {
	p := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := p.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, ErrMalformedEthernet
	}

	frame := &Frame{
		Ethernet: ethLayer.(*layers.Ethernet),
	}

	// only the frame's own network layer counts; gopacket also decodes IPv4
	// carried inside IPv6 or MPLS
	if innerEtherType(p, frame.Ethernet) != layers.EthernetTypeIPv4 {
		return frame, nil
	}

	if ipLayer := p.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		frame.IPv4 = ipLayer.(*layers.IPv4)
		return frame, nil
	}

	if errLayer := p.ErrorLayer(); errLayer != nil {
		return frame, fmt.Errorf("%w: %v", ErrMalformedIPv4, errLayer.Error())
	}

	return frame, nil
}

func innerEtherType(p gopacket.Packet, eth *layers.Ethernet) layers.EthernetType {
	etherType := eth.EthernetType
	for _, layer := range p.Layers() {
		if vlan, ok := layer.(*layers.Dot1Q); ok {
			etherType = vlan.Type
		}
	}

	return etherType
}
