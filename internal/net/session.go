package net

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lootgo/server/internal/net/packet"
	"go.uber.org/zap"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn FrameConn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here

	IP          string
	AccountName string
	Lang        string // notice language requested at login

	outBuf [][]byte // buffered packets, flushed by OutputSystem (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	lingerCh   chan struct{} // closed by CloseAfterFlush
	lingerOnce sync.Once
	lingering  atomic.Bool

	writeTimeout time.Duration

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int   // max packets/sec (0 = unlimited)
	pktCount   int   // packets received this second
	pktResetAt int64 // unix second of last counter reset

	log *zap.Logger
}

func NewSession(conn FrameConn, id uint64, inSize, outSize, pktPerSec int, writeTimeout time.Duration, log *zap.Logger) *Session {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, inSize),
		OutQueue:     make(chan []byte, outSize),
		IP:           conn.RemoteAddr(),
		closeCh:      make(chan struct{}),
		lingerCh:     make(chan struct{}),
		writeTimeout: writeTimeout,
		pktPerSec:    pktPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines. The client speaks first
// (C_HELLO), so nothing is written here.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet for sending. The packet is not written until
// FlushOutput is called by OutputSystem.
// Called only from the game loop goroutine, so outBuf needs no lock.
func (s *Session) Send(data []byte) {
	if s.closed.Load() || s.lingering.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

// CloseAfterFlush closes the session once the writer has written everything
// already flushed to OutQueue. Later Sends are dropped.
func (s *Session) CloseAfterFlush() {
	s.lingerOnce.Do(func() {
		s.lingering.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.lingerCh)
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It reads frames from the connection
// and pushes them onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		payload, err := s.conn.ReadFrame()
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

		// Block until InQueue has space or the session closes. Dropping a
		// pickup request here would lose it silently; blocking only stalls
		// this client.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine. It reads packets from OutQueue and
// writes them to the connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOnePacket(data) {
				return
			}
		case <-s.lingerCh:
			for {
				select {
				case data := <-s.OutQueue:
					if !s.writeOnePacket(data) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

// writeOnePacket writes a single packet. Returns true on success.
func (s *Session) writeOnePacket(data []byte) bool {
	if len(data) > 0 && s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("TX",
			zap.String("op", fmt.Sprintf("%s(0x%02X)", packet.OpcodeName(data[0]), data[0])),
			zap.Int("len", len(data)),
		)
	}
	if err := s.conn.WriteFrame(data, time.Now().Add(s.writeTimeout)); err != nil {
		if !s.closed.Load() {
			s.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}
