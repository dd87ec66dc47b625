package model

// Action names accepted by the dispatch endpoint.
const (
	ActionJoinDocument       = "join-document"
	ActionLeaveDocument      = "leave-document"
	ActionAddHighlight       = "add-highlight"
	ActionSendMessage        = "send-message"
	ActionGetMessages        = "get-messages"
	ActionGetHighlights      = "get-highlights"
	ActionGetActiveUsers     = "get-active-users"
	ActionUpdateActivity     = "update-activity"
	ActionInviteCollaborator = "invite-collaborator"
	ActionChangeRole         = "change-role"
	ActionRemoveCollaborator = "remove-collaborator"
	ActionGetInvites         = "get-invites"
	ActionAcceptInvite       = "accept-invite"
	ActionTypingStart        = "typing-start"
	ActionTypingStop         = "typing-stop"
)

// KnownAction reports whether name is one of the dispatch actions.
func KnownAction(name string) bool {
	switch name {
	case ActionJoinDocument, ActionLeaveDocument, ActionAddHighlight,
		ActionSendMessage, ActionGetMessages, ActionGetHighlights,
		ActionGetActiveUsers, ActionUpdateActivity, ActionInviteCollaborator,
		ActionChangeRole, ActionRemoveCollaborator, ActionGetInvites,
		ActionAcceptInvite, ActionTypingStart, ActionTypingStop:
		return true
	}
	return false
}

// Each action decodes the request body into its own struct so required
// fields are checked per action rather than against one loose envelope.

type JoinRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	UserID     string `json:"userId" validate:"required"`
	UserName   string `json:"userName" validate:"required"`
}

type LeaveRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	UserID     string `json:"userId" validate:"required"`
}

// HighlightInput carries the client-chosen fields of a highlight; the server
// assigns id, author, and timestamp.
type HighlightInput struct {
	PageNumber int     `json:"pageNumber"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Color      string  `json:"color"`
	Text       string  `json:"text"`
}

type AddHighlightRequest struct {
	DocumentID    string          `json:"documentId" validate:"required"`
	UserID        string          `json:"userId" validate:"required"`
	UserName      string          `json:"userName" validate:"required"`
	HighlightData *HighlightInput `json:"highlightData" validate:"required"`
}

type MessageInput struct {
	Content     string      `json:"content" validate:"required"`
	Type        MessageType `json:"type"`
	RecipientID string      `json:"recipientId"`
}

type SendMessageRequest struct {
	DocumentID  string        `json:"documentId" validate:"required"`
	UserID      string        `json:"userId" validate:"required"`
	UserName    string        `json:"userName" validate:"required"`
	MessageData *MessageInput `json:"messageData" validate:"required"`
}

type GetMessagesRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	// UserID widens the result to include the caller's direct messages.
	// Without it only public messages are returned.
	UserID string `json:"userId"`
}

type GetHighlightsRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type GetActiveUsersRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type UpdateActivityRequest struct {
	DocumentID string   `json:"documentId" validate:"required"`
	UserID     string   `json:"userId" validate:"required"`
	Activity   Activity `json:"activity" validate:"required,oneof=viewing editing idle"`
}

type InviteInput struct {
	Email   string `json:"email" validate:"required"`
	Role    Role   `json:"role" validate:"required,oneof=viewer editor admin"`
	Message string `json:"message"`
}

type InviteCollaboratorRequest struct {
	DocumentID string       `json:"documentId" validate:"required"`
	UserID     string       `json:"userId" validate:"required"`
	UserName   string       `json:"userName" validate:"required"`
	InviteData *InviteInput `json:"inviteData" validate:"required"`
}

type ChangeRoleRequest struct {
	DocumentID   string `json:"documentId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required"`
	NewRole      Role   `json:"newRole" validate:"required,oneof=viewer editor admin"`
}

type RemoveCollaboratorRequest struct {
	DocumentID   string `json:"documentId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required"`
}

type GetInvitesRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type AcceptInviteInput struct {
	InviteID string `json:"inviteId" validate:"required"`
}

type AcceptInviteRequest struct {
	DocumentID string             `json:"documentId" validate:"required"`
	UserID     string             `json:"userId" validate:"required"`
	InviteData *AcceptInviteInput `json:"inviteData" validate:"required"`
}

type TypingRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	UserName   string `json:"userName" validate:"required"`
}
