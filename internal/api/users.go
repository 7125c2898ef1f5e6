// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/reconcile"
)

var _ reconcile.HistoryFetcher = (*Client)(nil)

// =============================================================================
// PROFILES
// =============================================================================

// CurrentUser returns the profile the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (model.Profile, error) {
	var resp struct {
		envelope
		Profile model.Profile `json:"profile"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/current_user",
		auth:   true,
	}, &resp)
	return resp.Profile, err
}

// Users lists every profile.
func (c *Client) Users(ctx context.Context) ([]model.Profile, error) {
	var resp struct {
		envelope
		Data []model.Profile `json:"data"`
	}
	err := c.do(ctx, request{method: http.MethodGet, url: c.userURL + "/get_users"}, &resp)
	return resp.Data, err
}

// SearchUsers lists profiles whose username starts with prefix.
func (c *Client) SearchUsers(ctx context.Context, prefix string) ([]model.Profile, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: username is required", ErrBadRequest)
	}
	var resp struct {
		envelope
		Data []model.Profile `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/search_users",
		query:  url.Values{"username": {prefix}},
	}, &resp)
	return resp.Data, err
}

// =============================================================================
// FRIENDS
// =============================================================================

// Friends lists the accepted friends of username.
func (c *Client) Friends(ctx context.Context, username string) ([]model.Profile, error) {
	var resp struct {
		envelope
		Data []model.Profile `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/get_friends",
		query:  url.Values{"username": {strings.TrimSpace(username)}},
	}, &resp)
	return resp.Data, err
}

// FriendRequests lists pending requests addressed to username.
func (c *Client) FriendRequests(ctx context.Context, username string) ([]model.FriendRequest, error) {
	var resp struct {
		envelope
		Requests []model.FriendRequest `json:"requests"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/get_friend_requests",
		query:  url.Values{"username": {strings.TrimSpace(username)}},
	}, &resp)
	return resp.Requests, err
}

// SendFriendRequest asks to befriend to. The requester is the token's owner;
// from is sent for the backend's logs.
func (c *Client) SendFriendRequest(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("%w: receiver username is required", ErrBadRequest)
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		url:    c.userURL + "/send_friend_request",
		body:   map[string]string{"username": to, "current_user": strings.TrimSpace(from)},
		auth:   true,
	}, nil)
}

// AcceptFriendRequest accepts request id sent by sender to current. The
// backend opens the two-party conversation as part of accepting.
func (c *Client) AcceptFriendRequest(ctx context.Context, id model.ID, sender, current string) error {
	n, err := id.Uint()
	if err != nil {
		return fmt.Errorf("%w: request id %q is not numeric", ErrBadRequest, id)
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		url:    c.userURL + "/accept_friend_request",
		body: struct {
			RequestID      uint64 `json:"request_id"`
			SenderUsername string `json:"sender_username"`
			CurrentUser    string `json:"current_user"`
		}{n, strings.TrimSpace(sender), strings.TrimSpace(current)},
		auth: true,
	}, nil)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversation returns the conversation between two users, in either order.
func (c *Client) Conversation(ctx context.Context, userOne, userTwo string) (model.Conversation, error) {
	var resp struct {
		envelope
		Conversation model.Conversation `json:"conversation"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/get_conversation",
		query: url.Values{
			"user_one_username": {strings.TrimSpace(userOne)},
			"user_two_username": {strings.TrimSpace(userTwo)},
		},
	}, &resp)
	return resp.Conversation, err
}

// FetchHistory returns the persisted envelopes of a conversation, oldest
// first.
func (c *Client) FetchHistory(ctx context.Context, conversationID string) ([]model.RawMessage, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", ErrBadRequest)
	}
	var resp struct {
		envelope
		Data []model.RawMessage `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.userURL + "/get_messages",
		query:  url.Values{"conversationId": {conversationID}},
	}, &resp)
	return resp.Data, err
}
