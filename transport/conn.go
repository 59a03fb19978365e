// Package transport implements the secure WebSocket connection every plant
// worker owns: dial (with optional HTTP CONNECT proxy tunneling), binary
// frame send/receive, and close. A Conn is full-duplex but its Send method
// is not safe for concurrent use by more than one goroutine — the caller
// (the plant worker) is the single writer.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rithmic-go/rithmic-client/errs"
)

// Conn wraps one WebSocket session to a Rithmic gateway or bootstrap
// endpoint.
type Conn struct {
	ws *websocket.Conn
}

// Dial parses targetURL (wss://host[:port]/...), resolves any configured
// HTTP CONNECT proxy from the environment, tunnels through it if present,
// then performs the TLS handshake (OS trust store) and WebSocket upgrade.
// Without a proxy, TLS and upgrade happen directly against the host.
func Dial(ctx context.Context, targetURL string) (*Conn, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad gateway url %q: %v", errs.ErrTransport, targetURL, err)
	}
	hostPort := u.Host
	if u.Port() == "" {
		hostPort = net.JoinHostPort(u.Hostname(), "443")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
		NetDialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
			return dialWithOptionalProxy(targetURL, hostPort)
		},
	}

	ws, resp, err := dialer.DialContext(ctx, targetURL, nil)
	if err != nil {
		status := ""
		if resp != nil {
			status = resp.Status
		}
		return nil, fmt.Errorf("%w: websocket dial %s: %v %s", errs.ErrTransport, targetURL, err, status)
	}
	return &Conn{ws: ws}, nil
}

// Send writes one binary WebSocket frame. Not safe for concurrent callers.
func (c *Conn) Send(body []byte) error {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, body); err != nil {
		return fmt.Errorf("%w: send: %v", errs.ErrTransport, err)
	}
	return nil
}

// Receive returns the next binary message payload. It silently skips ping,
// pong, and text frames, returning only binary payloads. A clean close
// returns (nil, nil); any other failure is wrapped in errs.ErrTransport.
func (c *Conn) Receive() ([]byte, error) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: receive: %v", errs.ErrTransport, err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

// Close sends a best-effort close frame and drops the underlying socket.
func (c *Conn) Close() error {
	deadline := time.Now().Add(2 * time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}
