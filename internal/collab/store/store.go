package store

import (
	"encoding/json"

	"paperpal/internal/collab/model"
)

// SessionStore holds all live collaboration state: who is active in which
// document, role assignments, and the per-document chat, highlight and
// invite logs. It is injected into the service and the stream hub so tests
// can run against a fresh instance and a persistent backend can be swapped
// in later without touching the protocol layer.
//
// Write methods that store an entity assign its id and server timestamp and
// return the stored value.
type SessionStore interface {
	// Join registers the user as active in the document, assigns a role on
	// first contact (first user ever seen on a document becomes admin, later
	// ones viewer) and returns the state the client needs for initial sync.
	// Re-joining refreshes the existing entry. A user is tracked in at most
	// one document; joining another detaches them from the previous one.
	Join(documentID, userID, userName string) JoinState
	Leave(documentID, userID string)
	ActiveUsers(documentID string) []model.Participant
	// UpdateActivity is a no-op when the user is not currently tracked.
	UpdateActivity(documentID, userID string, activity model.Activity)

	// RoleOf is a read-only lookup; unlike Join it never assigns.
	RoleOf(documentID, userID string) (model.Role, bool)
	AssignRole(documentID, userID string, role model.Role)
	// RemoveCollaborator drops the user from the active set and deletes the
	// role entry entirely, so a rejoin starts over at the default role.
	RemoveCollaborator(documentID, userID string)

	PostMessage(documentID string, msg model.ChatMessage) model.ChatMessage
	// Messages returns the log filtered to what viewerID may see: public
	// messages plus direct messages they sent or received. An empty viewerID
	// yields public messages only.
	Messages(documentID, viewerID string) []model.ChatMessage

	AddHighlight(documentID string, h model.Highlight) model.Highlight
	// UpdateHighlight replaces the highlight with the same id in place and
	// reports whether it was found. Only the push stream uses this; the
	// dispatch API treats the highlight log as append-only.
	UpdateHighlight(documentID string, h model.Highlight) bool
	Highlights(documentID string) []model.Highlight

	CreateInvite(documentID string, inv model.Invite) model.Invite
	Invites(documentID string) []model.Invite
	// AcceptInvite marks the invite accepted and assigns its role to
	// byUserID. Accepting an already-accepted invite re-applies the role
	// without erroring.
	AcceptInvite(documentID, inviteID, byUserID string) (model.Invite, bool)

	SetCursor(documentID, userID string, pos json.RawMessage)
	// Cursors returns the last reported cursor position per active user.
	Cursors(documentID string) map[string]json.RawMessage

	StartTyping(documentID, userName string)
	StopTyping(documentID, userName string)
	TypingUsers(documentID string) []string
}

// JoinState is the snapshot handed to a freshly joined client.
type JoinState struct {
	Role        model.Role
	ActiveUsers []model.Participant
	Highlights  []model.Highlight
	Messages    []model.ChatMessage
	Cursors     map[string]json.RawMessage
}
