package net

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is the dialing side of a connection. Incoming payloads are pushed on
// In by a reader goroutine; Send writes synchronously.
type Client struct {
	conn FrameConn
	In   chan []byte
	Err  chan error // receives the read error that ended the reader, once

	mu        sync.Mutex // serializes writes
	closeOnce sync.Once
}

// Dial connects to addr. A "ws://" or "wss://" prefix selects the WebSocket
// transport; anything else is a TCP host:port.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	var fc FrameConn
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		d := websocket.Dialer{HandshakeTimeout: timeout}
		c, _, err := d.Dial(addr, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		fc = NewWSConn(c, "")
	} else {
		c, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		fc = NewTCPConn(c)
	}
	return NewClient(fc, 256), nil
}

// NewClient starts reading from an established connection.
func NewClient(fc FrameConn, inSize int) *Client {
	c := &Client{
		conn: fc,
		In:   make(chan []byte, inSize),
		Err:  make(chan error, 1),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for {
		data, err := c.conn.ReadFrame()
		if err != nil {
			c.Err <- err
			close(c.In)
			return
		}
		c.In <- data
	}
}

func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteFrame(data, time.Now().Add(10*time.Second))
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}
