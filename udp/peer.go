package udp

import (
	"net"
	"sync"
)

// State is the UDP peer lifecycle bitfield. Invariant: closed implies
// not bound, not connected, and not recv-started.
type State struct {
	Bound       bool `json:"bound"`
	Connected   bool `json:"connected"`
	RecvStarted bool `json:"recvStarted"`
	Paused      bool `json:"paused"`
	Closed      bool `json:"closed"`
	Closing     bool `json:"closing"`
}

// Peer is one UDP socket handle. Its conn is either a
// net.ListenUDP (bound) or a net.DialUDP (connected) result; both satisfy
// net.PacketConn/net.Conn and this package only needs the operations
// common to both.
type Peer struct {
	mu sync.Mutex

	id     uint64
	conn   *net.UDPConn
	local  *net.UDPAddr
	remote *net.UDPAddr

	state     State
	dialed    bool // conn came from net.DialUDP; Write instead of WriteToUDP
	ephemeral bool
	reuseAddr bool

	recvStop chan struct{}
	recvDone chan struct{}
}

func (p *Peer) snapshotState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// close marks the peer closed and releases its socket. Safe to call more
// than once.
func (p *Peer) close() error {
	p.mu.Lock()
	if p.state.Closed {
		p.mu.Unlock()
		return nil
	}
	p.state = State{Closed: true}
	conn := p.conn
	stop := p.recvStop
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
