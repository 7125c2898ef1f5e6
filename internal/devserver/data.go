// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/ztachat-tui/internal/model"
)

var (
	errUserNotFound         = errors.New("user not found")
	errBadPassword          = errors.New("invalid password")
	errRequestNotFound      = errors.New("friend request not found")
	errConversationNotFound = errors.New("no conversation found")
	errSelfRequest          = errors.New("cannot befriend yourself")
	errDuplicateRequest     = errors.New("friend request already exists")
)

type account struct {
	id       uint
	email    string
	username string
	hash     []byte
}

type conversation struct {
	id       uint
	created  time.Time
	profile1 uint
	profile2 uint
}

// =============================================================================
// DATA
// =============================================================================

// data is the in-memory backing store shared by the REST routes and the hub.
type data struct {
	mu       sync.RWMutex
	nextID   uint
	accounts map[string]*account // by email
	profiles map[uint]*model.Profile
	requests map[uint]*model.FriendRequest
	convs    map[uint]*conversation
	messages map[uint][]model.RawMessage
	now      func() time.Time
}

func newData(now func() time.Time) *data {
	return &data{
		accounts: make(map[string]*account),
		profiles: make(map[uint]*model.Profile),
		requests: make(map[uint]*model.FriendRequest),
		convs:    make(map[uint]*conversation),
		messages: make(map[uint][]model.RawMessage),
		now:      now,
	}
}

func (d *data) id() uint {
	d.nextID++
	return d.nextID
}

func idOf(n uint) model.ID {
	return model.ID(strconv.FormatUint(uint64(n), 10))
}

func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	return uint(n), err == nil && n > 0
}

// login checks password for email, creating the account on first login.
func (d *data) login(email, password string) (*account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if acc, ok := d.accounts[email]; ok {
		if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
			return nil, errBadPassword
		}
		return acc, nil
	}
	return d.createLocked(email, password)
}

func (d *data) createLocked(email, password string) (*account, error) {
	at := strings.Index(email, "@")
	if at <= 0 {
		return nil, errors.New("email must contain a name before @")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	now := d.now().UTC()
	acc := &account{id: d.id(), email: email, username: email[:at], hash: hash}
	d.accounts[email] = acc
	d.profiles[acc.id] = &model.Profile{
		ID:           idOf(acc.id),
		CreatedAt:    now,
		Email:        email,
		Username:     acc.username,
		ProfileImage: "https://avatar.oxro.io/avatar.svg?name=" + acc.username,
		Status:       model.StatusOnline,
		LastSeen:     now,
	}
	return acc, nil
}

func (d *data) profileByEmail(email string) (model.Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.accounts[email]
	if !ok {
		return model.Profile{}, false
	}
	return *d.profiles[acc.id], true
}

func (d *data) profileByNameLocked(username string) (*model.Profile, bool) {
	for _, p := range d.profiles {
		if p.Username == username {
			return p, true
		}
	}
	return nil, false
}

func (d *data) profilesSorted(filter func(*model.Profile) bool) []model.Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Profile, 0, len(d.profiles))
	for _, p := range d.profiles {
		if filter == nil || filter(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// =============================================================================
// FRIENDS
// =============================================================================

func (d *data) sendRequest(fromEmail, toUsername string) (model.FriendRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	from, ok := d.accounts[fromEmail]
	if !ok {
		return model.FriendRequest{}, errUserNotFound
	}
	to, ok := d.profileByNameLocked(toUsername)
	if !ok {
		return model.FriendRequest{}, errUserNotFound
	}
	if idOf(from.id) == to.ID {
		return model.FriendRequest{}, errSelfRequest
	}
	for _, r := range d.requests {
		if r.RequesterID == idOf(from.id) && r.ReceiverID == to.ID {
			return model.FriendRequest{}, errDuplicateRequest
		}
	}

	rid := d.id()
	req := &model.FriendRequest{
		ID:          idOf(rid),
		CreatedAt:   d.now().UTC(),
		RequesterID: idOf(from.id),
		Requester:   *d.profiles[from.id],
		ReceiverID:  to.ID,
		Receiver:    *to,
		Status:      model.RequestPending,
	}
	d.requests[rid] = req
	return *req, nil
}

func (d *data) pendingFor(username string) []model.FriendRequest {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.FriendRequest
	for _, r := range d.requests {
		if r.Status == model.RequestPending && r.Receiver.Username == username {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// accept marks the request accepted and opens the two-party conversation.
func (d *data) accept(requestID uint) (model.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.requests[requestID]
	if !ok {
		return model.Conversation{}, errRequestNotFound
	}
	r.Status = model.RequestAccepted

	p1, _ := parseID(r.RequesterID.String())
	p2, _ := parseID(r.ReceiverID.String())
	if c, ok := d.findConvLocked(p1, p2); ok {
		return d.conversationLocked(c), nil
	}
	c := &conversation{id: d.id(), created: d.now().UTC(), profile1: p1, profile2: p2}
	d.convs[c.id] = c
	return d.conversationLocked(c), nil
}

// befriend opens a conversation between two existing users directly.
func (d *data) befriend(userOne, userTwo string) (model.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.profileByNameLocked(userOne)
	if !ok {
		return model.Conversation{}, errUserNotFound
	}
	b, ok := d.profileByNameLocked(userTwo)
	if !ok {
		return model.Conversation{}, errUserNotFound
	}
	p1, _ := parseID(a.ID.String())
	p2, _ := parseID(b.ID.String())
	if c, ok := d.findConvLocked(p1, p2); ok {
		return d.conversationLocked(c), nil
	}
	c := &conversation{id: d.id(), created: d.now().UTC(), profile1: p1, profile2: p2}
	d.convs[c.id] = c
	return d.conversationLocked(c), nil
}

func (d *data) friendsOf(username string) []model.Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	me, ok := d.profileByNameLocked(username)
	if !ok {
		return nil
	}
	myID, _ := parseID(me.ID.String())

	var out []model.Profile
	for _, c := range d.convs {
		switch myID {
		case c.profile1:
			out = append(out, *d.profiles[c.profile2])
		case c.profile2:
			out = append(out, *d.profiles[c.profile1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (d *data) findConvLocked(a, b uint) (*conversation, bool) {
	for _, c := range d.convs {
		if (c.profile1 == a && c.profile2 == b) || (c.profile1 == b && c.profile2 == a) {
			return c, true
		}
	}
	return nil, false
}

func (d *data) conversationLocked(c *conversation) model.Conversation {
	return model.Conversation{
		ID:         idOf(c.id),
		CreatedAt:  c.created,
		Profile1ID: idOf(c.profile1),
		Profile1:   *d.profiles[c.profile1],
		Profile2ID: idOf(c.profile2),
		Profile2:   *d.profiles[c.profile2],
	}
}

func (d *data) conversationBetween(userOne, userTwo string) (model.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.profileByNameLocked(userOne)
	if !ok {
		return model.Conversation{}, errUserNotFound
	}
	b, ok := d.profileByNameLocked(userTwo)
	if !ok {
		return model.Conversation{}, errUserNotFound
	}
	p1, _ := parseID(a.ID.String())
	p2, _ := parseID(b.ID.String())
	c, ok := d.findConvLocked(p1, p2)
	if !ok {
		return model.Conversation{}, errConversationNotFound
	}
	return d.conversationLocked(c), nil
}

// member reports whether profileID takes part in conversationID.
func (d *data) member(conversationID, profileID uint) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.convs[conversationID]
	return ok && (c.profile1 == profileID || c.profile2 == profileID)
}

// appendMessage persists a single-part text message and returns it.
func (d *data) appendMessage(conversationID, senderID uint, contentType model.ContentType, content string) (model.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.convs[conversationID]
	if !ok {
		return model.RawMessage{}, errConversationNotFound
	}
	receiver := c.profile1
	if receiver == senderID {
		receiver = c.profile2
	}
	if contentType == "" {
		contentType = model.ContentText
	}

	msgID := d.id()
	msg := model.RawMessage{
		ID:             idOf(msgID),
		CreatedAt:      d.now().UTC(),
		ConversationID: idOf(conversationID),
		SenderID:       idOf(senderID),
		ReceiverID:     idOf(receiver),
		Content:        []model.RawContent{{ID: idOf(d.id()), ContentType: contentType, Content: content}},
	}
	d.messages[conversationID] = append(d.messages[conversationID], msg)
	return msg, nil
}

func (d *data) history(conversationID uint) []model.RawMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.RawMessage{}, d.messages[conversationID]...)
}
