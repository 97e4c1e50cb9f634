// Package udp implements the kernel's UDP module: bind/connect/send/recv
// peers with pause/resume, modeled as an explicit per-peer state machine.
//
// Each peer's receive loop is a dedicated goroutine performing blocking
// net.UDPConn.ReadFromUDP calls and hopping results back onto the
// EventLoop via Loop.Dispatch, with Go's runtime netpoller standing in
// as the reactor.
package udp

import (
	"net"
	"strconv"

	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/kernellog"
	"github.com/nativebridge/kernel/post"
	"github.com/nativebridge/kernel/registry"
)

// Event is the JSON payload emitted alongside a received datagram's
// Post.
type Event struct {
	ID      uint64 `json:"id"`
	Bytes   int    `json:"bytes"`
	Port    int    `json:"port"`
	Address string `json:"address"`
	EOF     bool   `json:"eof,omitempty"`
}

// BufferKind selects which kernel socket buffer BufferSize resizes.
type BufferKind string

const (
	BufferRecv BufferKind = "recv"
	BufferSend BufferKind = "send"
)

// OnData is invoked (on the loop goroutine) for every datagram a peer
// with an active read loop receives, and carries the Post id the raw
// bytes were registered under.
type OnData func(postID uint64, ev Event)

// OnError is invoked (on the loop goroutine) when a peer's read loop
// fails for a reason other than the loop being stopped deliberately.
type OnError func(err error)

// Module is the kernel's UDP module; it owns the Peer handle table.
type Module struct {
	loop  *eventloop.Loop
	posts *post.Store
	peers *registry.Table[Peer]
}

// New creates a UDP module bound to loop, registering received datagrams
// as Posts in posts.
func New(loop *eventloop.Loop, posts *post.Store) *Module {
	return &Module{loop: loop, posts: posts, peers: registry.New[Peer]()}
}

func (m *Module) peer(id uint64) (*Peer, error) {
	p, ok := m.peers.Get(id)
	if !ok {
		return nil, errUnknownPeer()
	}
	return p, nil
}

// Bind creates a new peer bound to addr:port. port=0 selects an
// ephemeral OS-assigned port. Re-binding an already-bound peer (id != 0)
// returns ERR_SOCKET_ALREADY_BOUND.
func (m *Module) Bind(id uint64, addr string, port int, reuseAddr bool) (uint64, error) {
	if id != 0 {
		p, err := m.peer(id)
		if err != nil {
			return 0, err
		}
		if p.snapshotState().Bound {
			return 0, errAlreadyBound()
		}
	}

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return 0, transport(err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return 0, transport(err)
	}

	p := &Peer{conn: conn, local: conn.LocalAddr().(*net.UDPAddr), reuseAddr: reuseAddr}
	p.state.Bound = true
	newID := m.peers.Add(p)
	p.id = newID
	return newID, nil
}

// Connect creates a new peer with its remote address set to addr:port.
// Reconnecting an existing peer replaces its remote address.
func (m *Module) Connect(id uint64, addr string, port int) (uint64, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return 0, transport(err)
	}

	if id != 0 {
		p, err := m.peer(id)
		if err != nil {
			return 0, err
		}
		p.mu.Lock()
		p.remote = udpAddr
		p.state.Connected = true
		p.mu.Unlock()
		return id, nil
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return 0, transport(err)
	}
	p := &Peer{conn: conn, local: conn.LocalAddr().(*net.UDPAddr), remote: udpAddr, dialed: true}
	p.state.Connected = true
	newID := m.peers.Add(p)
	p.id = newID
	return newID, nil
}

// Disconnect clears the peer's connected state, keeping its socket open.
func (m *Module) Disconnect(id uint64) error {
	p, err := m.peer(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.remote = nil
	p.state.Connected = false
	p.mu.Unlock()
	return nil
}

// Send writes data to the peer. When id is 0, an ephemeral peer is
// created for this one send and closed on completion, success or
// error. addr/port select the destination for a connectionless
// (bound-but-not-connected, or freshly-created ephemeral) peer; they are
// ignored when the peer is already connected.
func (m *Module) Send(id uint64, data []byte, addr string, port int, ephemeral bool) (uint64, int, error) {
	var p *Peer
	if id == 0 {
		conn, err := net.ListenUDP("udp", nil)
		if err != nil {
			return 0, 0, transport(err)
		}
		p = &Peer{conn: conn, local: conn.LocalAddr().(*net.UDPAddr), ephemeral: true}
		p.state.Bound = true
		id = m.peers.Add(p)
		p.id = id
		ephemeral = true
	} else {
		var err error
		p, err = m.peer(id)
		if err != nil {
			return 0, 0, err
		}
	}

	p.mu.Lock()
	conn := p.conn
	connected := p.state.Connected
	dialed := p.dialed
	remote := p.remote
	p.mu.Unlock()
	if conn == nil {
		return id, 0, errNotRunning()
	}

	// addr/port are ignored once a remote is set by connect; the
	// connected remote always wins.
	var n int
	var err error
	switch {
	case dialed:
		n, err = conn.Write(data)
	case connected && remote != nil:
		n, err = conn.WriteToUDP(data, remote)
	default:
		dst, resolveErr := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
		if resolveErr != nil {
			err = resolveErr
		} else {
			n, err = conn.WriteToUDP(data, dst)
		}
	}

	if ephemeral {
		m.peers.Delete(id)
		_ = p.close()
	}

	if err != nil {
		return id, n, transport(err)
	}
	return id, n, nil
}

// ReadStart begins receiving datagrams on the peer. Each datagram
// produces a Post carrying the raw bytes, and onData is invoked (via
// Loop.Dispatch, so always on the loop goroutine) with the Post id and
// the `{id, bytes, port, address}` event. A zero-length datagram
// produces an EOF event.
func (m *Module) ReadStart(id uint64, onData OnData, onError OnError) error {
	p, err := m.peer(id)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.state.Closed {
		p.mu.Unlock()
		return errNotRunning()
	}
	if p.state.RecvStarted {
		p.mu.Unlock()
		return nil
	}
	p.state.RecvStarted = true
	p.state.Paused = false
	conn := p.conn
	stop := make(chan struct{})
	done := make(chan struct{})
	p.recvStop = stop
	p.recvDone = done
	p.mu.Unlock()

	go m.recvLoop(p, conn, stop, done, onData, onError)
	return nil
}

func (m *Module) recvLoop(p *Peer, conn *net.UDPConn, stop, done chan struct{}, onData OnData, onError OnError) {
	defer close(done)
	buf := make([]byte, 65535)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, raddr, err := conn.ReadFromUDP(buf)
		select {
		case <-stop:
			return
		default:
		}
		if err != nil {
			_ = m.loop.Dispatch(func() {
				if onError != nil {
					onError(transport(err))
				}
			})
			return
		}

		body := make([]byte, n)
		copy(body, buf[:n])
		headers := "content-type: application/octet-stream\ncontent-length: " + strconv.Itoa(n)
		postID := m.posts.Create(0, body, headers)

		ev := Event{ID: p.id, Bytes: n, EOF: n == 0}
		if raddr != nil {
			ev.Address = raddr.IP.String()
			ev.Port = raddr.Port
		}
		_ = m.loop.Dispatch(func() {
			if onData != nil {
				onData(postID, ev)
			}
		})
	}
}

// ReadStop stops the peer's receive loop without closing its socket.
func (m *Module) ReadStop(id uint64) error {
	p, err := m.peer(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if !p.state.RecvStarted {
		p.mu.Unlock()
		return nil
	}
	p.state.RecvStarted = false
	stop := p.recvStop
	p.recvStop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	return nil
}

// Close closes the peer and removes it from the handle table.
func (m *Module) Close(id uint64) error {
	p, err := m.peer(id)
	if err != nil {
		return err
	}
	m.peers.Delete(id)
	return transport(p.close())
}

// GetSockName returns the peer's local address.
func (m *Module) GetSockName(id uint64) (*net.UDPAddr, error) {
	p, err := m.peer(id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local, nil
}

// GetPeerName returns the peer's remote address, or nil if not connected.
func (m *Module) GetPeerName(id uint64) (*net.UDPAddr, error) {
	p, err := m.peer(id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote, nil
}

// GetState returns the peer's current state bitfield.
func (m *Module) GetState(id uint64) (State, error) {
	p, err := m.peer(id)
	if err != nil {
		return State{}, err
	}
	return p.snapshotState(), nil
}

// BufferSize sets the kernel recv/send buffer for the peer's socket when
// size > 0 and returns size. With size <= 0 nothing is changed and size
// is returned as given; the socket's current buffer size is not read.
func (m *Module) BufferSize(id uint64, size int, which BufferKind) (int, error) {
	p, err := m.peer(id)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return 0, errNotRunning()
	}

	if size > 0 {
		if which == BufferSend {
			err = conn.SetWriteBuffer(size)
		} else {
			err = conn.SetReadBuffer(size)
		}
		if err != nil {
			return 0, transport(err)
		}
	}
	return size, nil
}

// PeerCount returns the number of currently live peers, used by the
// diagnostics snapshot.
func (m *Module) PeerCount() int { return m.peers.Len() }

// CloseAll closes every peer, used by Core's shutdown sequence.
func (m *Module) CloseAll() {
	for _, id := range m.peers.Ids() {
		if p, ok := m.peers.Get(id); ok {
			m.peers.Delete(id)
			if err := p.close(); err != nil {
				kernellog.Get().Warn("udp: error closing peer on shutdown", kernellog.F("id", id), kernellog.F("error", err))
			}
		}
	}
}
