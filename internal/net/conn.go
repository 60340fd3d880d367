package net

import (
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// FrameConn is a packet-oriented connection. TCP connections carry
// length-prefixed frames; WebSocket connections carry one payload per binary
// message. Session only talks to this interface.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte, deadline time.Time) error
	RemoteAddr() string
	Close() error
}

type tcpConn struct {
	conn net.Conn
}

// NewTCPConn wraps a stream connection with the 2-byte length framing.
func NewTCPConn(c net.Conn) FrameConn {
	return &tcpConn{conn: c}
}

func (c *tcpConn) ReadFrame() ([]byte, error) { return ReadFrame(c.conn) }

func (c *tcpConn) WriteFrame(data []byte, deadline time.Time) error {
	c.conn.SetWriteDeadline(deadline)
	return WriteFrame(c.conn, data)
}

func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
func (c *tcpConn) Close() error       { return c.conn.Close() }

type wsConn struct {
	conn *websocket.Conn
	addr string
}

// NewWSConn wraps an upgraded WebSocket. addr is the peer address sessions
// are keyed by; empty means the socket's own remote address.
func NewWSConn(c *websocket.Conn, addr string) FrameConn {
	if addr == "" {
		addr = c.RemoteAddr().String()
	}
	return &wsConn{conn: c, addr: addr}
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read ws message: %w", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 || len(data) > MaxPayload {
			return nil, fmt.Errorf("invalid ws payload size: %d", len(data))
		}
		return data, nil
	}
}

func (c *wsConn) WriteFrame(data []byte, deadline time.Time) error {
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write ws message: %w", err)
	}
	return nil
}

func (c *wsConn) RemoteAddr() string { return c.addr }
func (c *wsConn) Close() error       { return c.conn.Close() }
