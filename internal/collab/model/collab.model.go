package model

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleEditor || r == RoleAdmin
}

func (r Role) CanEdit() bool   { return r == RoleEditor || r == RoleAdmin }
func (r Role) CanInvite() bool { return r == RoleAdmin }
func (r Role) CanDelete() bool { return r == RoleAdmin }

type Activity string

const (
	ActivityViewing Activity = "viewing"
	ActivityEditing Activity = "editing"
	ActivityIdle    Activity = "idle"
)

// Participant is a user currently active in a document session. The registry
// is keyed by userId globally, so a user is tracked in at most one document
// at a time; joining a second document detaches them from the first.
type Participant struct {
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	DocumentID     string    `json:"documentId"`
	Role           Role      `json:"role"`
	Activity       Activity  `json:"activity"`
	LastActivityAt time.Time `json:"lastActivity"`
}

// Highlight is an annotation on a rendered page. Highlights are append-only;
// the dispatch API never edits or deletes them.
type Highlight struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	PageNumber int       `json:"pageNumber"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Color      string    `json:"color"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

type MessageType string

const (
	MessageText       MessageType = "TEXT"
	MessageAIResponse MessageType = "AI_RESPONSE"
	MessageSystem     MessageType = "SYSTEM"
	MessagePrivate    MessageType = "PRIVATE"
)

type ChatMessage struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"documentId"`
	UserID     string      `json:"userId"`
	UserName   string      `json:"userName"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	// RecipientID is set for direct messages. A message with a recipient is
	// only visible to the sender and the recipient.
	RecipientID string `json:"recipientId,omitempty"`
}

// VisibleTo reports whether the message should appear in viewerID's feed.
func (m ChatMessage) VisibleTo(viewerID string) bool {
	return m.RecipientID == "" || m.RecipientID == viewerID || m.UserID == viewerID
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
)

type Invite struct {
	ID            string       `json:"id"`
	DocumentID    string       `json:"documentId"`
	InvitedBy     string       `json:"invitedBy"`
	InvitedByName string       `json:"invitedByName"`
	Email         string       `json:"email"`
	Role          Role         `json:"role"`
	Message       string       `json:"message,omitempty"`
	Status        InviteStatus `json:"status"`
	Timestamp     time.Time    `json:"timestamp"`
}

type EventType string

const (
	EventUserJoined        EventType = "user_joined"
	EventUserLeft          EventType = "user_left"
	EventAnnotationAdded   EventType = "annotation_added"
	EventAnnotationUpdated EventType = "annotation_updated"
	EventCursorMoved       EventType = "cursor_moved"
)

// Event is a single frame on the push stream.
type Event struct {
	Type       EventType       `json:"type"`
	DocumentID string          `json:"documentId"`
	UserID     string          `json:"userId"`
	UserName   string          `json:"userName"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SessionSnapshot is the payload of the user_joined event sent as the first
// frame of a stream connection, and what join-document returns to pollers.
type SessionSnapshot struct {
	ActiveUsers []Participant              `json:"activeUsers"`
	Annotations []Highlight                `json:"annotations"`
	Cursors     map[string]json.RawMessage `json:"cursors,omitempty"`
}
