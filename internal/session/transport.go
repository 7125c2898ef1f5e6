// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/model"
)

// =============================================================================
// TRANSPORT SEAM
// =============================================================================

// Conn is one open channel.
type Conn interface {
	// ReadFrame blocks for the next text frame. A clean close by the peer
	// returns io.EOF.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one text frame. Safe for concurrent use.
	WriteFrame(data []byte) error

	// Close releases the channel. Safe to call more than once.
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, target model.ConnectionInfo) (Conn, error)
}

// =============================================================================
// WEBSOCKET DIALER
// =============================================================================

// WSDialer dials the chat service with gorilla/websocket.
type WSDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	MaxMessageSize   int64

	// Header is sent with the upgrade request, e.g. Authorization.
	Header http.Header
}

// NewWSDialer builds a dialer from the server and session config.
func NewWSDialer(cfg *config.Config) *WSDialer {
	return &WSDialer{
		URL:              cfg.Server.ChatURL,
		HandshakeTimeout: cfg.Session.HandshakeTimeout.D(),
		WriteWait:        cfg.Session.WriteWait.D(),
		PongWait:         cfg.Session.PongWait.D(),
		MaxMessageSize:   cfg.Session.MaxMessageSize,
	}
}

// WithHeader returns a copy that sends key: value on the upgrade request.
func (d *WSDialer) WithHeader(key, value string) *WSDialer {
	c := *d
	c.Header = d.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	c.Header.Set(key, value)
	return &c
}

// ChannelURL returns the channel address for target. The service reads
// conversationId and profileId; participantId is sent as an alias.
func ChannelURL(base string, target model.ConnectionInfo) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid chat url: %w", err)
	}
	q := u.Query()
	q.Set("conversationId", target.ConversationID)
	q.Set("profileId", target.ParticipantID)
	q.Set("participantId", target.ParticipantID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens a websocket to target.
func (d *WSDialer) Dial(ctx context.Context, target model.ConnectionInfo) (Conn, error) {
	addr, err := ChannelURL(d.URL, target)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, addr, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	return newWSConn(ws, d.WriteWait, d.PongWait, d.MaxMessageSize), nil
}

// =============================================================================
// WEBSOCKET CONN
// =============================================================================

type wsConn struct {
	ws        *websocket.Conn
	writeWait time.Duration
	pongWait  time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn, writeWait, pongWait time.Duration, maxSize int64) *wsConn {
	c := &wsConn{
		ws:        ws,
		writeWait: writeWait,
		pongWait:  pongWait,
		done:      make(chan struct{}),
	}

	if maxSize > 0 {
		ws.SetReadLimit(maxSize)
	}
	c.extendReadDeadline()

	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
	ws.SetPingHandler(func(data string) error {
		c.extendReadDeadline()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	if pongWait > 0 {
		go c.pingLoop(pongWait * 9 / 10)
	}
	return c
}

func (c *wsConn) extendReadDeadline() {
	if c.pongWait > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	}
}

// pingLoop keeps the read deadline alive against servers that never ping.
func (c *wsConn) pingLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		c.extendReadDeadline()
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeWait > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
