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
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// The builders below produce frames for tests and fixtures; the controller
// itself never originates frames.

// BuildIPv4Frame serializes an Ethernet/IPv4/UDP frame from src to dst. It is
// a test fixture.
func BuildIPv4Frame(srcMAC, dstMAC net.HardwareAddr, src, dst net.IP, payload []byte) ([]byte, error) {
	srcIP, dstIP := src.To4(), dst.To4()
	if srcIP == nil || dstIP == nil {
		return nil, errors.New("source and destination must be IPv4 addresses")
	}

	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	udp := layers.UDP{
		SrcPort: 5000,
		DstPort: 5001,
	}
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload))
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// BuildARPRequest serializes a broadcast ARP request asking for dstIP. It is
// a test fixture.
func BuildARPRequest(srcMAC net.HardwareAddr, srcIP, dstIP net.IP) ([]byte, error) {
	sourceIP, targetIP := srcIP.To4(), dstIP.To4()
	if sourceIP == nil || targetIP == nil {
		return nil, errors.New("ARP addresses must be IPv4 addresses")
	}

	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(srcMAC),
		SourceProtAddress: []byte(sourceIP),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte(targetIP),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}

	err := gopacket.SerializeLayers(buf, opts, &eth, &arp)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
