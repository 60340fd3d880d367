package net

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServerOptions carries the per-session queue and rate settings.
type ServerOptions struct {
	InQueueSize      int
	OutQueueSize     int
	PacketsPerSecond int // 0 = unlimited
	WriteTimeout     time.Duration

	// WebSocket peers in these ranges may name the client in X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// Server accepts TCP (and optionally WebSocket) connections and creates
// Sessions. New/dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	ws       *http.Server
	wsAddr   net.Addr
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	opts     ServerOptions
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, opts ServerOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine. It accepts TCP connections, creates
// sessions, and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}
		s.register(NewTCPConn(conn), "tcp")
	}
}

// ListenWS serves the WebSocket transport on addr at path /ws. It returns
// once the listener is bound; serving continues in the background.
func (s *Server) ListenWS(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("WebSocket 升級失敗", zap.Error(err))
			return
		}
		c.SetReadLimit(MaxPayload)
		addr := peerAddr(r.RemoteAddr, r.Header.Values("X-Forwarded-For"), s.opts.TrustedProxies)
		s.register(NewWSConn(c, addr), "ws")
	})
	s.ws = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.wsAddr = ln.Addr()
	go func() {
		if err := s.ws.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("WebSocket 服務中止", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) register(conn FrameConn, transport string) {
	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.opts.InQueueSize, s.opts.OutQueueSize, s.opts.PacketsPerSecond, s.opts.WriteTimeout, s.log)
	sess.Start()

	s.log.Info("玩家連線",
		zap.Uint64("session", id),
		zap.String("ip", sess.IP),
		zap.String("transport", transport),
	)

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("連線佇列已滿，拒絕新連線")
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
	if s.ws != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		s.ws.Shutdown(ctx)
		cancel()
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// WSAddr returns the WebSocket listener's address, or nil before ListenWS.
func (s *Server) WSAddr() net.Addr {
	return s.wsAddr
}
