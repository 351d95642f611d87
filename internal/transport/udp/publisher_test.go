// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaudio/internal/dsp"
)

type captureSender struct {
	packets [][]byte
	closed  bool
}

func (c *captureSender) Send(data []byte) error {
	c.packets = append(c.packets, bytes.Clone(data))
	return nil
}

func (c *captureSender) Close() error {
	c.closed = true
	return nil
}

func TestPacketLayout(t *testing.T) {
	pkt := Packet{Sequence: 7, Timestamp: 1234, Volume: 0.5, Bins: []float32{1, 2, 3}}

	var buf bytes.Buffer
	require.NoError(t, pkt.Encode(&buf))
	data := buf.Bytes()
	require.Len(t, data, HeaderSize+3*4)

	assert.Equal(t, []byte{0, 0, 0, 7}, data[0:4])
	assert.Equal(t, []byte{0, 3}, data[16:18])

	got, err := DecodePacket(data)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestDecodePacketRejectsBadLengths(t *testing.T) {
	_, err := DecodePacket(make([]byte, HeaderSize-1))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&Packet{Bins: []float32{1, 2}}).Encode(&buf))
	_, err = DecodePacket(buf.Bytes()[:buf.Len()-1])
	assert.Error(t, err)
}

func TestPublisherSequenceAndThrottle(t *testing.T) {
	cs := &captureSender{}
	p := newPublisher(cs, 10*time.Millisecond)

	clock := time.Unix(100, 0)
	p.now = func() time.Time { return clock }

	fv := dsp.FeatureVector{Volume: 0.2, Bins: []float64{0.1, 0.2}}
	require.NoError(t, p.Send(fv))

	clock = clock.Add(5 * time.Millisecond)
	require.NoError(t, p.Send(fv)) // too soon, skipped

	clock = clock.Add(5 * time.Millisecond)
	require.NoError(t, p.Send(fv))

	require.Len(t, cs.packets, 2)
	first, err := DecodePacket(cs.packets[0])
	require.NoError(t, err)
	second, err := DecodePacket(cs.packets[1])
	require.NoError(t, err)

	assert.Equal(t, uint32(1), first.Sequence)
	assert.Equal(t, uint32(2), second.Sequence)
	assert.Equal(t, float32(0.2), first.Volume)
	assert.Equal(t, []float32{0.1, 0.2}, first.Bins)
	assert.Equal(t, clock.UnixNano(), second.Timestamp)
}

func TestPublisherIgnoresOtherValues(t *testing.T) {
	cs := &captureSender{}
	p := newPublisher(cs, 0)
	assert.NoError(t, p.Send("not a feature vector"))
	assert.Empty(t, cs.packets)
	assert.NoError(t, p.Close())
	assert.True(t, cs.closed)
}

func TestNewPublisherRequiresSender(t *testing.T) {
	_, err := NewPublisher(nil, 0)
	assert.Error(t, err)
}

func TestSenderLoopback(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	sender, err := NewSender(ln.LocalAddr().String())
	require.NoError(t, err)
	p, err := NewPublisher(sender, 0)
	require.NoError(t, err)
	assert.Equal(t, "udp", p.Name())

	require.NoError(t, p.Send(dsp.FeatureVector{Volume: 0.75, Bins: []float64{0.5}}))

	buf := make([]byte, 1500)
	ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)

	pkt, err := DecodePacket(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), pkt.Volume)
	assert.Equal(t, []float32{0.5}, pkt.Bins)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, sender.Send([]byte{1}), ErrClosed)
	assert.NoError(t, sender.Close())
}

func TestNewSenderBadAddress(t *testing.T) {
	_, err := NewSender("not an address")
	assert.Error(t, err)
}
