// Package collab exposes the collaboration protocol over HTTP: a single
// action-dispatch endpoint that is the only mutation surface of the session
// store.
package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"paperpal/internal/collab/model"
	"paperpal/internal/collab/service"
	"paperpal/internal/metrics"
	"paperpal/pkg/logger"
)

type Handler struct {
	Service  *service.CollabService
	validate *validator.Validate
	metrics  *metrics.Metrics
}

func NewHandler(svc *service.CollabService, m *metrics.Metrics) *Handler {
	return &Handler{
		Service:  svc,
		validate: validator.New(),
		metrics:  m,
	}
}

// Dispatch routes {action, documentId, userId, ...} requests. Each action
// decodes the body into its own request struct; required-field violations
// stop processing before any store mutation.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: unreadable body", service.ErrInvalidRequest))
		return
	}

	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid JSON in request body", service.ErrInvalidRequest))
		return
	}
	if env.Action == "" {
		h.writeError(w, fmt.Errorf("%w: action is required", service.ErrInvalidRequest))
		return
	}
	// Unknown actions share one label so clients cannot mint unbounded
	// metric series.
	label := env.Action
	if !model.KnownAction(label) {
		label = "invalid"
	}
	h.metrics.ActionsTotal.WithLabelValues(label).Inc()

	switch env.Action {
	case model.ActionJoinDocument:
		var req model.JoinRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		st := h.Service.Join(req)
		h.respond(w, model.JoinResponse{
			Success:            true,
			Message:            "Joined document session",
			ActiveUsers:        st.ActiveUsers,
			ExistingHighlights: st.Highlights,
			ExistingMessages:   st.Messages,
			UserRole:           st.Role,
		})

	case model.ActionLeaveDocument:
		var req model.LeaveRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.Service.Leave(req)
		h.respond(w, model.StatusResponse{Success: true, Message: "Left document session"})

	case model.ActionAddHighlight:
		var req model.AddHighlightRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		highlight := h.Service.AddHighlight(req)
		h.respond(w, model.HighlightResponse{Success: true, Message: "Highlight added", Highlight: highlight})

	case model.ActionSendMessage:
		var req model.SendMessageRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		msg := h.Service.SendMessage(req)
		h.respond(w, model.MessageResponse{Success: true, Message: "Message sent", ChatMessage: msg})

	case model.ActionGetMessages:
		var req model.GetMessagesRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		messages, typing := h.Service.Messages(req.DocumentID, req.UserID)
		h.respond(w, model.MessagesResponse{Success: true, Messages: messages, TypingUsers: typing})

	case model.ActionGetHighlights:
		var req model.GetHighlightsRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.HighlightsResponse{Success: true, Highlights: h.Service.Highlights(req.DocumentID)})

	case model.ActionGetActiveUsers:
		var req model.GetActiveUsersRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.ActiveUsersResponse{Success: true, ActiveUsers: h.Service.ActiveUsers(req.DocumentID)})

	case model.ActionUpdateActivity:
		var req model.UpdateActivityRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.Service.UpdateActivity(req)
		h.respond(w, model.StatusResponse{Success: true, Message: "Activity updated"})

	case model.ActionInviteCollaborator:
		var req model.InviteCollaboratorRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		inv, err := h.Service.InviteCollaborator(req)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.InviteResponse{Success: true, Message: "Invitation sent", Invite: inv})

	case model.ActionChangeRole:
		var req model.ChangeRoleRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		if err := h.Service.ChangeRole(req); err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.RoleResponse{Success: true, Message: "Role changed", NewRole: req.NewRole})

	case model.ActionRemoveCollaborator:
		var req model.RemoveCollaboratorRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		if err := h.Service.RemoveCollaborator(req); err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.StatusResponse{Success: true, Message: "Collaborator removed"})

	case model.ActionGetInvites:
		var req model.GetInvitesRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.InvitesResponse{Success: true, Invites: h.Service.Invites(req.DocumentID)})

	case model.ActionAcceptInvite:
		var req model.AcceptInviteRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		inv, err := h.Service.AcceptInvite(req)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.respond(w, model.RoleResponse{Success: true, Message: "Invitation accepted", Role: inv.Role})

	case model.ActionTypingStart:
		var req model.TypingRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.Service.StartTyping(req)
		h.respond(w, model.StatusResponse{Success: true})

	case model.ActionTypingStop:
		var req model.TypingRequest
		if err := h.decode(body, &req); err != nil {
			h.writeError(w, err)
			return
		}
		h.Service.StopTyping(req)
		h.respond(w, model.StatusResponse{Success: true})

	default:
		h.writeError(w, fmt.Errorf("%w: %s", service.ErrInvalidAction, env.Action))
	}
}

func (h *Handler) decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: malformed payload", service.ErrInvalidRequest)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: missing or invalid fields: %s",
				service.ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	return nil
}

func (h *Handler) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAction):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	default:
		logger.Sugar.Errorf("Collaboration API error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}
