package net

import (
	"bytes"
	"net"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{0x10, 1, 2, 3}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got := buf.Bytes()[:2]; got[0] != 6 || got[1] != 0 {
		t.Fatalf("header = %v, want [6 0]", got)
	}
	payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(payload, []byte{0x10, 1, 2, 3}) {
		t.Fatalf("payload = %v", payload)
	}
}

func TestReadFrameRejectsEmpty(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader([]byte{2, 0})); err == nil {
		t.Fatalf("expected error for zero-length payload")
	}
}

func TestSessionPipesFrames(t *testing.T) {
	srv, cli := net.Pipe()
	sess := NewSession(NewTCPConn(srv), 1, 4, 4, 0, time.Second, zap.NewNop())
	sess.Start()
	defer sess.Close()

	client := NewClient(NewTCPConn(cli), 4)
	defer client.Close()

	if err := client.Send([]byte{0x01, 'a', 0}); err != nil {
		t.Fatalf("client send: %v", err)
	}
	select {
	case got := <-sess.InQueue:
		if got[0] != 0x01 {
			t.Fatalf("server got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inbound frame")
	}

	sess.Send([]byte{0x81})
	sess.FlushOutput()
	select {
	case got := <-client.In:
		if len(got) != 1 || got[0] != 0x81 {
			t.Fatalf("client got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for outbound frame")
	}
}

func TestFlushOutputBackpressureCloses(t *testing.T) {
	srv, cli := net.Pipe()
	defer cli.Close()
	// writer goroutine not started, so OutQueue never drains
	sess := NewSession(NewTCPConn(srv), 2, 1, 1, 0, time.Second, zap.NewNop())
	sess.Send([]byte{1})
	sess.Send([]byte{2})
	sess.FlushOutput()
	if !sess.IsClosed() {
		t.Fatalf("expected slow session to be closed")
	}
}

func TestCloseAfterFlushDeliversQueued(t *testing.T) {
	srv, cli := net.Pipe()
	sess := NewSession(NewTCPConn(srv), 3, 4, 4, 0, time.Second, zap.NewNop())
	sess.Start()
	client := NewClient(NewTCPConn(cli), 4)
	defer client.Close()

	sess.Send([]byte{0x81})
	sess.Send([]byte{0x82})
	sess.FlushOutput()
	sess.CloseAfterFlush()
	sess.Send([]byte{0x83}) // dropped

	for _, want := range []byte{0x81, 0x82} {
		select {
		case got := <-client.In:
			if len(got) != 1 || got[0] != want {
				t.Fatalf("client got %v, want [%#x]", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %#x", want)
		}
	}
	select {
	case <-client.Err:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection not closed after flush")
	}
	if !sess.IsClosed() {
		t.Fatalf("expected session closed")
	}
}

func dialWS(t *testing.T, opts ServerOptions, forwarded string) *Session {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", opts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	if err := srv.ListenWS("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenWS: %v", err)
	}
	h := http.Header{}
	h.Set("X-Forwarded-For", forwarded)
	c, _, err := websocket.DefaultDialer.Dial("ws://"+srv.WSAddr().String()+"/ws", h)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	select {
	case sess := <-srv.NewSessions():
		t.Cleanup(sess.Close)
		return sess
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for session")
	}
	return nil
}

func TestWSIgnoresForwardedFromUntrustedPeer(t *testing.T) {
	for _, fwd := range []string{"1.1.1.1", "2.2.2.2"} {
		sess := dialWS(t, ServerOptions{InQueueSize: 4, OutQueueSize: 4}, fwd)
		host, _, err := net.SplitHostPort(sess.IP)
		if err != nil || host != "127.0.0.1" {
			t.Fatalf("forwarded %s: session IP = %q, want the loopback peer", fwd, sess.IP)
		}
	}
}

func TestWSHonorsForwardedFromTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"127.0.0.1"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	sess := dialWS(t, ServerOptions{InQueueSize: 4, OutQueueSize: 4, TrustedProxies: proxies}, "9.9.9.9, 1.1.1.1")
	if sess.IP != "1.1.1.1" {
		t.Fatalf("session IP = %q, want the right-most forwarded hop", sess.IP)
	}
}

func TestPeerAddrWalksFromRight(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.5"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	cases := []struct {
		remote    string
		forwarded []string
		want      string
	}{
		// untrusted peer: header ignored
		{"203.0.113.7:4000", []string{"1.1.1.1"}, "203.0.113.7:4000"},
		// spoofed left-most hop is skipped over by the right-most untrusted one
		{"10.1.2.3:4000", []string{"6.6.6.6, 8.8.8.8, 10.9.9.9"}, "8.8.8.8"},
		// several header lines form one list
		{"192.168.1.5:4000", []string{"6.6.6.6", "8.8.4.4"}, "8.8.4.4"},
		// every hop trusted: fall back to the peer
		{"10.1.2.3:4000", []string{"10.2.2.2"}, "10.1.2.3:4000"},
		// garbage stops the walk
		{"10.1.2.3:4000", []string{"1.1.1.1, nonsense"}, "10.1.2.3:4000"},
		// no header
		{"10.1.2.3:4000", nil, "10.1.2.3:4000"},
	}
	for _, c := range cases {
		if got := peerAddr(c.remote, c.forwarded, proxies); got != c.want {
			t.Fatalf("peerAddr(%q, %q) = %q, want %q", c.remote, c.forwarded, got, c.want)
		}
	}
	if got := peerAddr("10.1.2.3:4000", []string{"1.1.1.1"}, nil); got != "10.1.2.3:4000" {
		t.Fatalf("no trusted proxies: got %q", got)
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatalf("expected error for bad prefix")
	}
	if _, err := ParseTrustedProxies([]string{"proxy.local"}); err == nil {
		t.Fatalf("expected error for hostname")
	}
	p, err := ParseTrustedProxies([]string{"::1"})
	if err != nil || len(p) != 1 || !p[0].Contains(netip.MustParseAddr("::1")) {
		t.Fatalf("expected ::1 to be trusted, got %v %v", p, err)
	}
}
