package udp

import "github.com/nativebridge/kernel/kernelerr"

// errAlreadyBound is returned by Bind on a peer that is already bound.
func errAlreadyBound() error {
	return kernelerr.AlreadyExists("ERR_SOCKET_ALREADY_BOUND", "udp: peer already bound")
}

// errNotRunning is returned by operations on a closed peer.
func errNotRunning() error {
	return kernelerr.Internal("ERR_SOCKET_DGRAM_NOT_RUNNING", "udp: peer is not running")
}

func errUnknownPeer() error {
	return kernelerr.NotFound("ENOTFOUND", "udp: unknown peer id")
}

func transport(err error) error {
	if err == nil {
		return nil
	}
	if kerr, ok := err.(*kernelerr.Error); ok {
		return kerr
	}
	return kernelerr.Transport("ECONNREFUSED", err)
}
