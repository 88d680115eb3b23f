// Package transport is the thin external collaborator of spec.md §6: a
// UDP datagram socket per neighbor, and a Dispatcher that fans the
// readable sockets into one channel so the reactor can remain a single
// consumer despite having N sockets to watch (spec.md §5's "readability
// wait with a short timeout", realized without a portable multi-socket
// select()).
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/route-beacon/as-router/internal/addr"
)

// pollInterval bounds how long a reader goroutine blocks before
// re-checking ctx, matching spec.md §5's "order of 100ms" readiness
// wait.
const pollInterval = 100 * time.Millisecond

// Link is one neighbor's datagram socket: bound to an ephemeral local
// port, connected to the neighbor's listening port on loopback (the
// simulated topology of spec.md §4.A).
type Link struct {
	Neighbor addr.Address
	conn     *net.UDPConn
}

// Dial opens a UDP socket to a neighbor listening on loopback:port.
func Dial(neighborAddr addr.Address, port uint16) (*Link, error) {
	remote := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)}
	conn, err := net.DialUDP("udp4", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("transport: dial neighbor %s on port %d: %w", neighborAddr, port, err)
	}
	return &Link{Neighbor: neighborAddr, conn: conn}, nil
}

// Send writes one datagram to the neighbor.
func (l *Link) Send(frame []byte) error {
	if _, err := l.conn.Write(frame); err != nil {
		return fmt.Errorf("transport: send to %s: %w", l.Neighbor, err)
	}
	return nil
}

// Close releases the socket.
func (l *Link) Close() error {
	return l.conn.Close()
}

// LocalPort reports the ephemeral local port the socket was bound to.
func (l *Link) LocalPort() int {
	return l.conn.LocalAddr().(*net.UDPAddr).Port
}

// Inbound is one datagram read off a link, tagged with the neighbor it
// arrived from.
type Inbound struct {
	Neighbor addr.Address
	Frame    []byte
}

// ReadError reports a non-timeout read failure on a link (spec.md §7
// "Transport failure": logged, the frame that would have been read is
// simply absent).
type ReadError struct {
	Neighbor addr.Address
	Err      error
}

// Dispatcher fans multiple Links' reader goroutines into one channel,
// so the reactor's event loop stays a single consumer (spec.md §5).
type Dispatcher struct {
	inbound chan Inbound
	errs    chan ReadError
}

// NewDispatcher returns a Dispatcher with the given channel buffer size.
func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{
		inbound: make(chan Inbound, buffer),
		errs:    make(chan ReadError, buffer),
	}
}

// Inbound is the channel of datagrams read from any watched link.
func (d *Dispatcher) Inbound() <-chan Inbound { return d.inbound }

// Errors is the channel of non-timeout read errors from any watched link.
func (d *Dispatcher) Errors() <-chan ReadError { return d.errs }

// Watch runs a reader loop for l until ctx is cancelled. Meant to be run
// in its own goroutine, one per link; the reactor itself never touches
// a socket directly.
func (d *Dispatcher) Watch(ctx context.Context, l *Link) {
	buf := make([]byte, 65536)
	for {
		if ctx.Err() != nil {
			return
		}
		l.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := l.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case d.errs <- ReadError{Neighbor: l.Neighbor, Err: err}:
			case <-ctx.Done():
				return
			}
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case d.inbound <- Inbound{Neighbor: l.Neighbor, Frame: frame}:
		case <-ctx.Done():
			return
		}
	}
}
