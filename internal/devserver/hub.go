// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// =============================================================================
// HUB
// =============================================================================

// hub relays frames between the participants of a conversation. A frame is
// never echoed back to the profile that sent it.
type hub struct {
	data *data
	log  *zap.Logger

	mu     sync.RWMutex
	rooms  map[uint]map[*client]struct{}
	closed bool
}

func newHub(d *data, log *zap.Logger) *hub {
	return &hub{data: d, log: log, rooms: make(map[uint]map[*client]struct{})}
}

type client struct {
	hub            *hub
	conn           *websocket.Conn
	send           chan []byte
	conversationID uint
	profileID      uint
	once           sync.Once
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	room := h.rooms[c.conversationID]
	if room == nil {
		room = make(map[*client]struct{})
		h.rooms[c.conversationID] = room
	}
	room[c] = struct{}{}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.conversationID)
		}
	}
	h.mu.Unlock()
	c.stop()
}

// broadcast queues data for every client in the room except the sender. A
// client whose buffer is full is dropped.
func (h *hub) broadcast(conversationID, senderID uint, data []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.rooms[conversationID] {
		if c.profileID == senderID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow client", zap.Uint("conversation_id", conversationID), zap.Uint("profile_id", c.profileID))
		h.remove(c)
	}
}

// connections returns how many sockets are open in a conversation.
func (h *hub) connections(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.rooms = make(map[uint]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.stop()
	}
}

// serve upgrades the request and runs the client's pumps.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, conversationID, profileID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		conversationID: conversationID,
		profileID:      profileID,
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	h.log.Debug("client joined", zap.Uint("conversation_id", conversationID), zap.Uint("profile_id", profileID))

	go c.writePump()
	c.readPump()
}

// =============================================================================
// CLIENT PUMPS
// =============================================================================

// stop closes the send channel once; writePump then closes the socket.
func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

func (c *client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("read error", zap.Error(err))
			}
			return
		}
		c.handle(raw)
	}
}

// handle persists an inbound frame and relays it with the server's view of
// the sender. Raw text is accepted as the content of a text message.
func (c *client) handle(raw []byte) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	var in session.Frame
	if raw[0] != '{' || json.Unmarshal(raw, &in) != nil {
		in = session.Frame{Content: string(raw)}
	}
	if in.Content == "" {
		return
	}

	msg, err := c.hub.data.appendMessage(c.conversationID, c.profileID, in.ContentType, in.Content)
	if err != nil {
		c.hub.log.Warn("failed to save message", zap.Error(err))
		return
	}

	out := frameFor(msg)
	data, err := out.Encode()
	if err != nil {
		return
	}
	c.hub.broadcast(c.conversationID, c.profileID, data)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// frameFor is the relayed form of a stored message.
func frameFor(m model.RawMessage) session.Frame {
	f := session.Frame{
		Type:           session.FrameTypeMessage,
		ID:             m.ID.String(),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SentAt:         m.CreatedAt,
	}
	if len(m.Content) > 0 {
		f.Content = m.Content[0].Content
		f.ContentType = m.Content[0].ContentType
	}
	return f
}
