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
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	t.Helper()

	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, l...)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeIPv4(t *testing.T) {
	data, err := BuildIPv4Frame(srcMAC, dstMAC, net.ParseIP("10.0.0.5"), net.ParseIP("192.168.1.1"), []byte("hello"))
	require.NoError(t, err)

	frame, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, frame.IPv4)
	assert.Equal(t, srcMAC, frame.Ethernet.SrcMAC)
	assert.True(t, frame.IPv4.SrcIP.Equal(net.ParseIP("10.0.0.5")))
	assert.True(t, frame.IPv4.DstIP.Equal(net.ParseIP("192.168.1.1")))
}

func TestDecodeVLANTaggedIPv4(t *testing.T) {
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeDot1Q},
		&layers.Dot1Q{VLANIdentifier: 10, Type: layers.EthernetTypeIPv4},
		&layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP{10, 0, 0, 1},
			DstIP:    net.IP{10, 0, 0, 2},
		},
		&layers.UDP{SrcPort: 1, DstPort: 2},
	)

	frame, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, frame.IPv4)
	assert.True(t, frame.IPv4.DstIP.Equal(net.IP{10, 0, 0, 2}))
}

func TestDecodeARP(t *testing.T) {
	data, err := BuildARPRequest(srcMAC, net.ParseIP("10.0.0.5"), net.ParseIP("10.0.0.9"))
	require.NoError(t, err)

	frame, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, frame.IPv4)
	assert.Equal(t, layers.EthernetTypeARP, frame.Ethernet.EthernetType)
	assert.Equal(t, broadcastMAC, frame.Ethernet.DstMAC)
}

func TestDecodeIPv6(t *testing.T) {
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6},
		&layers.IPv6{
			Version:    6,
			NextHeader: layers.IPProtocolUDP,
			HopLimit:   64,
			SrcIP:      net.ParseIP("fd00::1"),
			DstIP:      net.ParseIP("fd00::2"),
		},
		&layers.UDP{SrcPort: 1, DstPort: 2},
	)

	frame, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, frame.IPv4)
}

func TestDecodeIgnoresEncapsulatedIPv4(t *testing.T) {
	inner := func() *layers.IPv4 {
		return &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP{10, 0, 0, 5},
			DstIP:    net.IP{10, 0, 0, 9},
		}
	}

	testcases := []struct {
		name      string
		etherType layers.EthernetType
		data      []byte
	}{
		{
			name:      "IPv4 inside IPv6",
			etherType: layers.EthernetTypeIPv6,
			data: serialize(t,
				&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6},
				&layers.IPv6{
					Version:    6,
					NextHeader: layers.IPProtocolIPv4,
					HopLimit:   64,
					SrcIP:      net.ParseIP("fd00::1"),
					DstIP:      net.ParseIP("fd00::2"),
				},
				inner(),
				&layers.UDP{SrcPort: 1, DstPort: 2},
			),
		},
		{
			name:      "IPv4 inside MPLS",
			etherType: layers.EthernetTypeMPLSUnicast,
			data: serialize(t,
				&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeMPLSUnicast},
				&layers.MPLS{Label: 100, StackBottom: true, TTL: 64},
				inner(),
				&layers.UDP{SrcPort: 1, DstPort: 2},
			),
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			frame, err := Decode(testcase.data)
			require.NoError(t, err)
			assert.Equal(t, testcase.etherType, frame.Ethernet.EthernetType)
			assert.Nil(t, frame.IPv4)
		})
	}
}

func TestDecodeKeepsOuterIPv4(t *testing.T) {
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		&layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolIPv4,
			SrcIP:    net.IP{10, 0, 0, 1},
			DstIP:    net.IP{192, 168, 1, 1},
		},
		&layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP{10, 0, 0, 5},
			DstIP:    net.IP{10, 0, 0, 9},
		},
		&layers.UDP{SrcPort: 1, DstPort: 2},
	)

	frame, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, frame.IPv4)
	assert.True(t, frame.IPv4.DstIP.Equal(net.IP{192, 168, 1, 1}))
}

func TestDecodeMalformedIPv4(t *testing.T) {
	// an IPv4 ethertype followed by half an IPv4 header, without the
	// padding the serializer would add
	data := append([]byte{}, dstMAC...)
	data = append(data, srcMAC...)
	data = append(data, 0x08, 0x00)
	data = append(data, 0x45, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00, 0x00, 0x40, 0x11)

	frame, err := Decode(data)
	assert.True(t, errors.Is(err, ErrMalformedIPv4), "unexpected error %v", err)
	require.NotNil(t, frame)
	assert.Nil(t, frame.IPv4)
}

func TestDecodeMalformedEthernet(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02, 0x03})
	assert.True(t, errors.Is(err, ErrMalformedEthernet), "unexpected error %v", err)

	_, err = Decode(nil)
	assert.True(t, errors.Is(err, ErrMalformedEthernet), "unexpected error %v", err)
}

func TestBuildRejectsIPv6(t *testing.T) {
	_, err := BuildIPv4Frame(srcMAC, dstMAC, net.ParseIP("fd00::1"), net.ParseIP("10.0.0.1"), nil)
	assert.Error(t, err)

	_, err = BuildARPRequest(srcMAC, net.ParseIP("10.0.0.1"), net.ParseIP("fd00::2"))
	assert.Error(t, err)
}
