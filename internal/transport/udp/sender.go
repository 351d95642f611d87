// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "visaudio/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp: sender is closed")

// Sender writes datagrams to one connected UDP peer.
type Sender struct {
	mu     sync.Mutex // Protects conn during Close
	conn   *net.UDPConn
	target string
}

// NewSender dials targetAddress ("host:port"). No local port is bound
// explicitly; the kernel picks one.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr())
	return &Sender{conn: conn, target: conn.RemoteAddr().String()}, nil
}

// Send transmits data as one datagram.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Target returns the resolved peer address.
func (s *Sender) Target() string { return s.target }

// Close closes the connection. Further calls are no-ops.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	applog.Debugf("UDP Sender: Closing connection to %s", s.target)
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
