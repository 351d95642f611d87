// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"visaudio/internal/dsp"
	applog "visaudio/internal/log"
)

/*
Packet layout (BigEndian):

	+-------------------------------------------------------------------+
	| Field         | Type      | Size   | Description                  |
	|---------------|-----------|--------|------------------------------|
	| Sequence      | uint32    | 4      | Increments per sent packet   |
	| Timestamp     | int64     | 8      | Nanoseconds since epoch      |
	| Volume        | float32   | 4      | Feature vector volume        |
	| Bin Count     | uint16    | 2      | Number of bins (N)           |
	| Bins          | []float32 | N * 4  | Feature vector bins          |
	+-------------------------------------------------------------------+
*/

// HeaderSize is the packet size without bins.
const HeaderSize = 4 + 8 + 4 + 2

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Volume    float32
	Bins      []float32
}

// Encode appends the packet to buf.
func (p *Packet) Encode(buf *bytes.Buffer) error {
	if len(p.Bins) > 0xFFFF {
		return fmt.Errorf("udp: %d bins do not fit in a packet", len(p.Bins))
	}
	header := [HeaderSize]byte{}
	binary.BigEndian.PutUint32(header[0:4], p.Sequence)
	binary.BigEndian.PutUint64(header[4:12], uint64(p.Timestamp))
	binary.BigEndian.PutUint32(header[12:16], math.Float32bits(p.Volume))
	binary.BigEndian.PutUint16(header[16:18], uint16(len(p.Bins)))
	buf.Write(header[:])
	return binary.Write(buf, binary.BigEndian, p.Bins)
}

// DecodePacket parses a datagram produced by Encode.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("udp: short packet (%d bytes)", len(data))
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:12])),
		Volume:    math.Float32frombits(binary.BigEndian.Uint32(data[12:16])),
	}
	n := int(binary.BigEndian.Uint16(data[16:18]))
	if len(data) != HeaderSize+4*n {
		return Packet{}, fmt.Errorf("udp: packet declares %d bins but carries %d bytes", n, len(data)-HeaderSize)
	}
	p.Bins = make([]float32, n)
	if err := binary.Read(bytes.NewReader(data[HeaderSize:]), binary.BigEndian, p.Bins); err != nil && err != io.EOF {
		return Packet{}, err
	}
	return p, nil
}

// datagramSender is satisfied by *Sender.
type datagramSender interface {
	Send(data []byte) error
	Close() error
}

// Publisher packs feature vectors into datagrams. Vectors arriving less
// than minInterval after the previous packet are skipped so a fast loop
// cannot flood the network.
type Publisher struct {
	sender      datagramSender
	minInterval time.Duration
	now         func() time.Time

	mu          sync.Mutex
	sequenceNum uint32
	lastSent    time.Time
	f32         []float32
	packet      bytes.Buffer
}

// NewPublisher wraps sender. minInterval <= 0 sends every vector.
func NewPublisher(sender *Sender, minInterval time.Duration) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return newPublisher(sender, minInterval), nil
}

func newPublisher(sender datagramSender, minInterval time.Duration) *Publisher {
	applog.Infof("UDPPublisher: Initializing (min interval: %s)", minInterval)
	return &Publisher{sender: sender, minInterval: minInterval, now: time.Now}
}

// Name implements transport.Named.
func (p *Publisher) Name() string { return "udp" }

// Send implements transport.Transport. Values other than dsp.FeatureVector
// are ignored.
func (p *Publisher) Send(data any) error {
	fv, ok := data.(dsp.FeatureVector)
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.minInterval > 0 && !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.minInterval {
		return nil
	}

	p.f32 = p.f32[:0]
	for _, v := range fv.Bins {
		p.f32 = append(p.f32, float32(v))
	}

	pkt := Packet{
		Sequence:  p.sequenceNum + 1,
		Timestamp: now.UnixNano(),
		Volume:    float32(fv.Volume),
		Bins:      p.f32,
	}
	p.packet.Reset()
	if err := pkt.Encode(&p.packet); err != nil {
		return err
	}
	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}

	p.sequenceNum = pkt.Sequence
	p.lastSent = now
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", pkt.Sequence, p.packet.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}
