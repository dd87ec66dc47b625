package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"paperpal/internal/collab/model"
	"paperpal/internal/collab/store"
	"paperpal/pkg/logger"
)

// Error taxonomy of the protocol. Handlers map these onto HTTP statuses with
// errors.Is; everything else is treated as unexpected.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidAction    = errors.New("invalid action")
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrNotFound         = errors.New("not found")
)

// Broadcaster fans an event out to every connected participant of a
// document, optionally skipping the originator so a sender that already
// applied the change optimistically does not receive its own echo.
type Broadcaster interface {
	Publish(event model.Event, excludeUserID string)
}

// CollabService is the sole mutation surface over the session store. Every
// state change flows through here, which keeps permission checks and
// broadcast decisions in one place.
type CollabService struct {
	Store store.SessionStore
	Hub   Broadcaster
}

func NewCollabService(st store.SessionStore, hub Broadcaster) *CollabService {
	return &CollabService{Store: st, Hub: hub}
}

// Join registers the user and returns the initial sync state. Presence
// changes through the dispatch API do not broadcast; only the push stream
// announces joins and leaves.
func (s *CollabService) Join(req model.JoinRequest) store.JoinState {
	st := s.Store.Join(req.DocumentID, req.UserID, req.UserName)
	logger.Sugar.Infof("User %s joined document %s as %s", req.UserID, req.DocumentID, st.Role)
	return st
}

func (s *CollabService) Leave(req model.LeaveRequest) {
	s.Store.Leave(req.DocumentID, req.UserID)
}

func (s *CollabService) ActiveUsers(documentID string) []model.Participant {
	return s.Store.ActiveUsers(documentID)
}

func (s *CollabService) UpdateActivity(req model.UpdateActivityRequest) {
	s.Store.UpdateActivity(req.DocumentID, req.UserID, req.Activity)
}

func (s *CollabService) AddHighlight(req model.AddHighlightRequest) model.Highlight {
	input := req.HighlightData
	h := s.Store.AddHighlight(req.DocumentID, model.Highlight{
		UserID:     req.UserID,
		UserName:   req.UserName,
		PageNumber: input.PageNumber,
		X:          input.X,
		Y:          input.Y,
		Width:      input.Width,
		Height:     input.Height,
		Color:      input.Color,
		Text:       input.Text,
	})

	data, err := json.Marshal(h)
	if err == nil {
		s.Hub.Publish(model.Event{
			Type:       model.EventAnnotationAdded,
			DocumentID: req.DocumentID,
			UserID:     req.UserID,
			UserName:   req.UserName,
			Data:       data,
			Timestamp:  h.Timestamp,
		}, req.UserID)
	}
	return h
}

func (s *CollabService) Highlights(documentID string) []model.Highlight {
	return s.Store.Highlights(documentID)
}

func (s *CollabService) SendMessage(req model.SendMessageRequest) model.ChatMessage {
	input := req.MessageData
	msg := model.ChatMessage{
		UserID:      req.UserID,
		UserName:    req.UserName,
		Content:     input.Content,
		Type:        input.Type,
		RecipientID: input.RecipientID,
	}
	if msg.RecipientID != "" && msg.Type == "" {
		msg.Type = model.MessagePrivate
	}
	return s.Store.PostMessage(req.DocumentID, msg)
}

// Messages returns the chat log visible to viewerID alongside the names of
// users currently typing.
func (s *CollabService) Messages(documentID, viewerID string) ([]model.ChatMessage, []string) {
	return s.Store.Messages(documentID, viewerID), s.Store.TypingUsers(documentID)
}

// InviteCollaborator records a pending invitation. Any participant may
// invite; only role management is admin-gated.
func (s *CollabService) InviteCollaborator(req model.InviteCollaboratorRequest) (model.Invite, error) {
	if !req.InviteData.Role.Valid() {
		return model.Invite{}, fmt.Errorf("%w: role must be viewer, editor, or admin", ErrInvalidRequest)
	}
	inv := s.Store.CreateInvite(req.DocumentID, model.Invite{
		InvitedBy:     req.UserID,
		InvitedByName: req.UserName,
		Email:         req.InviteData.Email,
		Role:          req.InviteData.Role,
		Message:       req.InviteData.Message,
	})
	logger.Sugar.Infof("Invitation %s sent for document %s to %s", inv.ID, req.DocumentID, inv.Email)
	return inv, nil
}

func (s *CollabService) Invites(documentID string) []model.Invite {
	return s.Store.Invites(documentID)
}

// AcceptInvite marks the invite accepted and grants its role to the caller.
// Accepting twice re-applies the role without erroring.
func (s *CollabService) AcceptInvite(req model.AcceptInviteRequest) (model.Invite, error) {
	inv, ok := s.Store.AcceptInvite(req.DocumentID, req.InviteData.InviteID, req.UserID)
	if !ok {
		return model.Invite{}, fmt.Errorf("%w: invitation %s", ErrNotFound, req.InviteData.InviteID)
	}
	return inv, nil
}

func (s *CollabService) ChangeRole(req model.ChangeRoleRequest) error {
	if !req.NewRole.Valid() {
		return fmt.Errorf("%w: role must be viewer, editor, or admin", ErrInvalidRequest)
	}
	if err := s.requireAdmin(req.DocumentID, req.UserID); err != nil {
		return err
	}
	s.Store.AssignRole(req.DocumentID, req.TargetUserID, req.NewRole)
	return nil
}

func (s *CollabService) RemoveCollaborator(req model.RemoveCollaboratorRequest) error {
	if err := s.requireAdmin(req.DocumentID, req.UserID); err != nil {
		return err
	}
	s.Store.RemoveCollaborator(req.DocumentID, req.TargetUserID)
	return nil
}

func (s *CollabService) StartTyping(req model.TypingRequest) {
	s.Store.StartTyping(req.DocumentID, req.UserName)
}

func (s *CollabService) StopTyping(req model.TypingRequest) {
	s.Store.StopTyping(req.DocumentID, req.UserName)
}

// requireAdmin uses a read-only role lookup so a stranger probing an empty
// document cannot promote themselves through the first-joiner rule.
func (s *CollabService) requireAdmin(documentID, userID string) error {
	role, ok := s.Store.RoleOf(documentID, userID)
	if !ok || role != model.RoleAdmin {
		logger.Sugar.Warnf("Permission denied: user %s (role %s) on document %s", userID, role, documentID)
		return ErrPermissionDenied
	}
	return nil
}
