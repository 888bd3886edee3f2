package net

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wowgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// PacketSink receives the packets a socket lifts off the wire after the
// handshake completed. The world session implements it.
type PacketSink interface {
	QueuePacket(p *packet.Packet)
	OnSocketClosed()
}

// Authenticator validates a CMSG_AUTH_SESSION handshake and, on success,
// binds the socket to a sink that owns it from then on.
type Authenticator interface {
	Authenticate(sock *Socket, build uint32, account, proof string) (PacketSink, error)
}

// AuthError carries the SMSG_AUTH_RESPONSE code for a refused handshake.
type AuthError struct {
	Code   uint8
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

type outPacket struct {
	op      packet.Opcode
	payload []byte
}

// Socket is one client TCP connection. Network I/O runs in dedicated
// goroutines; everything game-side happens behind the PacketSink.
type Socket struct {
	ID   uint64
	conn net.Conn

	auth Authenticator
	sink atomic.Pointer[sinkBox]
	seed uint32

	OutQueue chan outPacket

	IP string

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

// sinkBox exists so the atomic pointer can distinguish "no sink yet" from a
// nil interface stored by a failed handshake.
type sinkBox struct{ sink PacketSink }

func NewSocket(conn net.Conn, id uint64, auth Authenticator, outSize, pktPerSec int, log *zap.Logger) *Socket {
	return &Socket{
		ID:        id,
		conn:      conn,
		auth:      auth,
		OutQueue:  make(chan outPacket, outSize),
		IP:        conn.RemoteAddr().String(),
		closeCh:   make(chan struct{}),
		pktPerSec: pktPerSec,
		log:       log.With(zap.Uint64("socket", id)),
	}
}

// Start sends the auth challenge and launches the reader and writer
// goroutines. Until the handshake finishes, the only frame the socket
// accepts is CMSG_AUTH_SESSION.
func (s *Socket) Start() {
	var seedBuf [4]byte
	rand.Read(seedBuf[:])
	s.seed = binary.LittleEndian.Uint32(seedBuf[:])

	w := packet.NewWriter(packet.SMSG_AUTH_CHALLENGE)
	w.Uint32(1)
	w.Uint32(s.seed)

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteServerFrame(s.conn, w.Opcode(), w.Payload()); err != nil {
		s.log.Error("認證挑戰發送失敗", zap.Error(err))
		s.Close()
		return
	}

	go s.readLoop()
	go s.writeLoop()
}

// Seed returns the per-connection challenge seed sent to the client.
func (s *Socket) Seed() uint32 { return s.seed }

func (s *Socket) RemoteAddr() string { return s.IP }

// SendPacket queues a built packet for the writer goroutine. Non-blocking:
// a full queue means the client cannot keep up and the socket is dropped.
func (s *Socket) SendPacket(w *packet.Writer) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- outPacket{op: w.Opcode(), payload: w.Payload()}:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線", zap.String("op", w.Opcode().Name()))
		s.Close()
	}
}

// Close shuts the socket down and tells the bound sink, if any, that the
// transport is gone. Safe to call more than once.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if box := s.sink.Load(); box != nil && box.sink != nil {
			box.sink.OnSocketClosed()
		}
	})
}

func (s *Socket) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. The first frame must complete the
// handshake; every later frame is handed to the bound sink.
func (s *Socket) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		p, err := ReadClientFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("封包速率超限，斷開連線", zap.Int("pps", s.pktCount))
				return
			}
		}

		box := s.sink.Load()
		if box == nil {
			if !s.handleAuthSession(p) {
				return
			}
			continue
		}

		box.sink.QueuePacket(p)
	}
}

// handleAuthSession parses CMSG_AUTH_SESSION and runs the authenticator.
// Any fault here kills the connection; an unauthenticated peer gets no
// second chance.
func (s *Socket) handleAuthSession(p *packet.Packet) bool {
	if p.Opcode != packet.CMSG_AUTH_SESSION {
		s.log.Warn("未認證連線送出非認證封包", zap.String("op", p.Opcode.Name()))
		return false
	}

	r := packet.NewReader(p)
	build := r.Uint32()
	r.Uint32() // login server id
	account := r.CString()
	proof := r.CString()
	if err := r.Err(); err != nil {
		s.log.Warn("認證封包格式錯誤", zap.Error(err))
		return false
	}

	sink, err := s.auth.Authenticate(s, build, account, proof)
	if err != nil {
		s.log.Info("認證失敗", zap.String("account", account), zap.Error(err))
		code := packet.AuthFailed
		var ae *AuthError
		if errors.As(err, &ae) {
			code = ae.Code
		}
		w := packet.NewWriter(packet.SMSG_AUTH_RESPONSE)
		w.Uint8(code)
		s.SendPacket(w)
		return false
	}

	s.sink.Store(&sinkBox{sink: sink})
	s.log.Info(fmt.Sprintf("帳號認證成功  account=%s  build=%d", account, build))
	return true
}

// writeLoop runs in its own goroutine, framing queued packets onto TCP.
func (s *Socket) writeLoop() {
	defer s.Close()

	for {
		select {
		case out := <-s.OutQueue:
			if !s.writeOne(out) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Socket) writeOne(out outPacket) bool {
	s.log.Debug("TX",
		zap.String("op", out.op.Name()),
		zap.Int("len", len(out.payload)),
	)

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteServerFrame(s.conn, out.op, out.payload); err != nil {
		if !s.closed.Load() {
			s.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}
