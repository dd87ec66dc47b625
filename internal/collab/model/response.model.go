package model

// Response envelopes for the dispatch endpoint. The sync client decodes the
// same structs, so field names here are the wire contract.

type JoinResponse struct {
	Success            bool          `json:"success"`
	Message            string        `json:"message,omitempty"`
	ActiveUsers        []Participant `json:"activeUsers"`
	ExistingHighlights []Highlight   `json:"existingHighlights"`
	ExistingMessages   []ChatMessage `json:"existingMessages"`
	UserRole           Role          `json:"userRole"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type HighlightResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Highlight Highlight `json:"highlight"`
}

type HighlightsResponse struct {
	Success    bool        `json:"success"`
	Highlights []Highlight `json:"highlights"`
}

type MessageResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	ChatMessage ChatMessage `json:"chatMessage"`
}

type MessagesResponse struct {
	Success     bool          `json:"success"`
	Messages    []ChatMessage `json:"messages"`
	TypingUsers []string      `json:"typingUsers"`
}

type ActiveUsersResponse struct {
	Success     bool          `json:"success"`
	ActiveUsers []Participant `json:"activeUsers"`
}

type InviteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Invite  Invite `json:"invite"`
}

type InvitesResponse struct {
	Success bool     `json:"success"`
	Invites []Invite `json:"invites"`
}

type RoleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	NewRole Role   `json:"newRole,omitempty"`
	Role    Role   `json:"role,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
