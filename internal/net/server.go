package net

import (
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and hands each one a Socket. Sockets
// authenticate themselves against the Authenticator; the game side never
// sees a connection before the handshake passes.
type Server struct {
	listener  net.Listener
	auth      Authenticator
	nextID    atomic.Uint64
	outSize   int
	pktPerSec int
	log       *zap.Logger
	closeCh   chan struct{}
}

func NewServer(bindAddr string, auth Authenticator, outSize, pktPerSec int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", bindAddr, err)
	}
	return &Server{
		listener:  ln,
		auth:      auth,
		outSize:   outSize,
		pktPerSec: pktPerSec,
		log:       log,
		closeCh:   make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine. Each accepted connection gets a
// socket that immediately starts its handshake.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sock := NewSocket(conn, id, s.auth, s.outSize, s.pktPerSec, s.log)
		s.log.Info(fmt.Sprintf("玩家連線  socket=%d  ip=%s", id, sock.IP))
		sock.Start()
	}
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
