// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// CONNECTION INFO
// =============================================================================

// ConnectionInfo is the (conversation, participant) pair a live channel is
// bound to. The zero value means "not bound".
type ConnectionInfo struct {
	ConversationID string `json:"conversation_id"`
	ParticipantID  string `json:"participant_id"`
}

// Valid reports whether both identifiers are present.
func (c ConnectionInfo) Valid() bool {
	return c.ConversationID != "" && c.ParticipantID != ""
}

// IsZero reports whether the pair is unbound.
func (c ConnectionInfo) IsZero() bool {
	return c.ConversationID == "" && c.ParticipantID == ""
}

// String renders the pair for logs and the status bar.
func (c ConnectionInfo) String() string {
	if c.IsZero() {
		return "-"
	}
	return "conversation=" + c.ConversationID + " participant=" + c.ParticipantID
}

// =============================================================================
// USER SERVICE ENTITIES
// =============================================================================

// UserStatus is the presence value stored on a profile.
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

// Profile is a user profile as the user service returns it.
type Profile struct {
	ID           ID         `json:"ID"`
	CreatedAt    time.Time  `json:"CreatedAt"`
	Email        string     `json:"Email"`
	Username     string     `json:"Username"`
	PublicKey    string     `json:"PublicKey,omitempty"`
	ProfileImage string     `json:"ProfileImage,omitempty"`
	AboutMe      string     `json:"AboutMe,omitempty"`
	Status       UserStatus `json:"Status,omitempty"`
	LastSeen     time.Time  `json:"LastSeen"`
}

// RequestStatus is the state of a friend request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest links a requester to a receiver.
type FriendRequest struct {
	ID          ID            `json:"ID"`
	CreatedAt   time.Time     `json:"CreatedAt"`
	RequesterID ID            `json:"RequesterID"`
	Requester   Profile       `json:"Requester"`
	ReceiverID  ID            `json:"ReceiverID"`
	Receiver    Profile       `json:"Receiver"`
	Status      RequestStatus `json:"Status"`
}

// Conversation is a two-party conversation record.
type Conversation struct {
	ID         ID        `json:"ID"`
	CreatedAt  time.Time `json:"CreatedAt"`
	Profile1ID ID        `json:"Profile1ID"`
	Profile1   Profile   `json:"Profile1"`
	Profile2ID ID        `json:"Profile2ID"`
	Profile2   Profile   `json:"Profile2"`
}

// Peer returns the participant of c that is not localID.
func (c Conversation) Peer(localID string) Profile {
	if c.Profile1ID.String() == localID {
		return c.Profile2
	}
	return c.Profile1
}

// Includes reports whether profileID takes part in c.
func (c Conversation) Includes(profileID string) bool {
	return c.Profile1ID.String() == profileID || c.Profile2ID.String() == profileID
}
