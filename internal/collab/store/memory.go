package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"paperpal/internal/collab/model"
)

const assistantWelcome = "Hello! I can help you understand this document. " +
	"Ask me anything about the content, methodology, or concepts."

// MemoryStore is the in-process SessionStore. All state lives for the
// lifetime of the server; a single mutex serializes every mutation so the
// first-writer-wins role assignment and log append order hold under
// concurrent HTTP handlers.
type MemoryStore struct {
	mu sync.Mutex

	active   map[string]map[string]struct{} // documentID -> active userIDs
	sessions map[string]*model.Participant  // userID -> presence entry (global)
	roles    map[string]map[string]model.Role

	messages   map[string][]model.ChatMessage
	highlights map[string][]model.Highlight
	invites    map[string][]model.Invite

	cursors map[string]map[string]json.RawMessage
	typing  map[string]map[string]struct{} // documentID -> typing userNames

	lastMsgStamp int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:     make(map[string]map[string]struct{}),
		sessions:   make(map[string]*model.Participant),
		roles:      make(map[string]map[string]model.Role),
		messages:   make(map[string][]model.ChatMessage),
		highlights: make(map[string][]model.Highlight),
		invites:    make(map[string][]model.Invite),
		cursors:    make(map[string]map[string]json.RawMessage),
		typing:     make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Join(documentID, userID, userName string) JoinState {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Detach from a previously joined document: presence is a single global
	// mapping keyed by userID, so the last join wins.
	if prev, ok := s.sessions[userID]; ok && prev.DocumentID != documentID {
		if set, ok := s.active[prev.DocumentID]; ok {
			delete(set, userID)
		}
	}

	if s.active[documentID] == nil {
		s.active[documentID] = make(map[string]struct{})
	}
	s.active[documentID][userID] = struct{}{}

	role := s.assignRoleLocked(documentID, userID)

	s.sessions[userID] = &model.Participant{
		UserID:         userID,
		UserName:       userName,
		DocumentID:     documentID,
		Role:           role,
		Activity:       model.ActivityViewing,
		LastActivityAt: time.Now(),
	}

	s.seedAssistantLocked(documentID)

	return JoinState{
		Role:        role,
		ActiveUsers: s.activeUsersLocked(documentID),
		Highlights:  append([]model.Highlight(nil), s.highlights[documentID]...),
		Messages:    s.messagesLocked(documentID, userID),
		Cursors:     s.cursorsLocked(documentID),
	}
}

// assignRoleLocked returns the existing role or records a new one. The first
// user ever seen on a document becomes admin, everyone after that a viewer.
func (s *MemoryStore) assignRoleLocked(documentID, userID string) model.Role {
	docRoles := s.roles[documentID]
	if docRoles == nil {
		docRoles = make(map[string]model.Role)
		s.roles[documentID] = docRoles
	}
	if role, ok := docRoles[userID]; ok {
		return role
	}
	role := model.RoleViewer
	if len(docRoles) == 0 {
		role = model.RoleAdmin
	}
	docRoles[userID] = role
	return role
}

// seedAssistantLocked plants the AI assistant's greeting the first time a
// document's chat log is touched, so the chat sidebar never opens empty.
func (s *MemoryStore) seedAssistantLocked(documentID string) {
	if _, ok := s.messages[documentID]; ok {
		return
	}
	s.messages[documentID] = []model.ChatMessage{{
		ID:         "msg_1",
		DocumentID: documentID,
		UserID:     "ai-assistant",
		UserName:   "AI Assistant",
		Content:    assistantWelcome,
		Type:       model.MessageAIResponse,
		Timestamp:  time.Now().Add(-time.Minute),
	}}
}

func (s *MemoryStore) Leave(documentID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.active[documentID]; ok {
		delete(set, userID)
	}
	delete(s.sessions, userID)
	if cursors, ok := s.cursors[documentID]; ok {
		delete(cursors, userID)
	}
	// Roles persist across leave/rejoin.
}

func (s *MemoryStore) ActiveUsers(documentID string) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeUsersLocked(documentID)
}

func (s *MemoryStore) activeUsersLocked(documentID string) []model.Participant {
	users := make([]model.Participant, 0, len(s.active[documentID]))
	for userID := range s.active[documentID] {
		entry, ok := s.sessions[userID]
		if !ok || entry.DocumentID != documentID {
			continue
		}
		users = append(users, *entry)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (s *MemoryStore) UpdateActivity(documentID, userID string, activity model.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[userID]
	if !ok || entry.DocumentID != documentID {
		return
	}
	entry.Activity = activity
	entry.LastActivityAt = time.Now()
}

func (s *MemoryStore) RoleOf(documentID, userID string) (model.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roles[documentID][userID]
	return role, ok
}

func (s *MemoryStore) AssignRole(documentID, userID string, role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignRoleValueLocked(documentID, userID, role)
}

func (s *MemoryStore) assignRoleValueLocked(documentID, userID string, role model.Role) {
	if s.roles[documentID] == nil {
		s.roles[documentID] = make(map[string]model.Role)
	}
	s.roles[documentID][userID] = role

	// Keep the presence entry in sync for users currently in the room.
	if entry, ok := s.sessions[userID]; ok && entry.DocumentID == documentID {
		entry.Role = role
	}
}

func (s *MemoryStore) RemoveCollaborator(documentID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.active[documentID]; ok {
		delete(set, userID)
	}
	if entry, ok := s.sessions[userID]; ok && entry.DocumentID == documentID {
		delete(s.sessions, userID)
	}
	delete(s.roles[documentID], userID)
	if cursors, ok := s.cursors[documentID]; ok {
		delete(cursors, userID)
	}
}

func (s *MemoryStore) PostMessage(documentID string, msg model.ChatMessage) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seedAssistantLocked(documentID)

	msg.ID = fmt.Sprintf("msg_%d_%s", s.nextMsgStampLocked(), msg.UserID)
	msg.DocumentID = documentID
	msg.Timestamp = time.Now()
	if msg.Type == "" {
		msg.Type = model.MessageText
	}
	s.messages[documentID] = append(s.messages[documentID], msg)

	// Posting a message clears the sender's typing indicator.
	if typing, ok := s.typing[documentID]; ok {
		delete(typing, msg.UserName)
	}
	return msg
}

// nextMsgStampLocked returns a millisecond stamp that never repeats, so two
// messages from the same user in the same millisecond still get distinct ids.
func (s *MemoryStore) nextMsgStampLocked() int64 {
	stamp := time.Now().UnixMilli()
	if stamp <= s.lastMsgStamp {
		stamp = s.lastMsgStamp + 1
	}
	s.lastMsgStamp = stamp
	return stamp
}

func (s *MemoryStore) Messages(documentID, viewerID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked(documentID, viewerID)
}

func (s *MemoryStore) messagesLocked(documentID, viewerID string) []model.ChatMessage {
	visible := make([]model.ChatMessage, 0, len(s.messages[documentID]))
	for _, msg := range s.messages[documentID] {
		if msg.VisibleTo(viewerID) {
			visible = append(visible, msg)
		}
	}
	return visible
}

func (s *MemoryStore) AddHighlight(documentID string, h model.Highlight) model.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.ID = xid.New().String()
	h.DocumentID = documentID
	h.Timestamp = time.Now()
	s.highlights[documentID] = append(s.highlights[documentID], h)
	return h
}

func (s *MemoryStore) UpdateHighlight(documentID string, h model.Highlight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.highlights[documentID] {
		if existing.ID == h.ID {
			h.DocumentID = documentID
			s.highlights[documentID][i] = h
			return true
		}
	}
	return false
}

func (s *MemoryStore) Highlights(documentID string) []model.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Highlight(nil), s.highlights[documentID]...)
}

func (s *MemoryStore) CreateInvite(documentID string, inv model.Invite) model.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = "invite_" + xid.New().String()
	inv.DocumentID = documentID
	inv.Status = model.InvitePending
	inv.Timestamp = time.Now()
	s.invites[documentID] = append(s.invites[documentID], inv)
	return inv
}

func (s *MemoryStore) Invites(documentID string) []model.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Invite(nil), s.invites[documentID]...)
}

func (s *MemoryStore) AcceptInvite(documentID, inviteID, byUserID string) (model.Invite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.invites[documentID] {
		inv := &s.invites[documentID][i]
		if inv.ID != inviteID {
			continue
		}
		inv.Status = model.InviteAccepted
		s.assignRoleValueLocked(documentID, byUserID, inv.Role)
		return *inv, true
	}
	return model.Invite{}, false
}

func (s *MemoryStore) SetCursor(documentID, userID string, pos json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursors[documentID] == nil {
		s.cursors[documentID] = make(map[string]json.RawMessage)
	}
	s.cursors[documentID][userID] = pos
}

func (s *MemoryStore) Cursors(documentID string) map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorsLocked(documentID)
}

func (s *MemoryStore) cursorsLocked(documentID string) map[string]json.RawMessage {
	cursors := make(map[string]json.RawMessage, len(s.cursors[documentID]))
	for userID, pos := range s.cursors[documentID] {
		cursors[userID] = pos
	}
	return cursors
}

func (s *MemoryStore) StartTyping(documentID, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.typing[documentID] == nil {
		s.typing[documentID] = make(map[string]struct{})
	}
	s.typing[documentID][userName] = struct{}{}
}

func (s *MemoryStore) StopTyping(documentID, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if typing, ok := s.typing[documentID]; ok {
		delete(typing, userName)
	}
}

func (s *MemoryStore) TypingUsers(documentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.typing[documentID]))
	for name := range s.typing[documentID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
