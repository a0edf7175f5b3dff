// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketDialer is the production Dialer. It establishes websocket
// connections carrying the text-frame protocol.
type WebSocketDialer struct {
	// Dialer is the underlying websocket dialer. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// NewWebSocketDialer returns a WebSocketDialer using the default
// websocket handshake settings.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{Dialer: websocket.DefaultDialer}
}

// Dial connects to the channel endpoint. The handshake honors ctx.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, response, err := dialer.DialContext(ctx, url, nil)
	if response != nil && response.Body != nil {
		_ = response.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &webSocketConn{conn: conn}, nil
}

// webSocketConn adapts a websocket connection to the Conn interface.
type webSocketConn struct {
	// writeMu serializes writes; gorilla connections support one
	// concurrent writer.
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// ReadText returns the next text payload. Binary frames are skipped:
// the channel protocol is UTF-8 text, and anything else on the wire is
// not independently decodable.
func (c *webSocketConn) ReadText() (string, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (c *webSocketConn) WriteText(payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (c *webSocketConn) Close() error {
	return c.conn.Close()
}

// isCleanClose reports whether a read error represents an orderly
// shutdown rather than a transport failure. Either way the channel
// reconnects; the distinction only controls whether an error line is
// surfaced to the user.
func isCleanClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
