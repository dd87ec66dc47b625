package collab

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperpal/internal/collab/model"
	"paperpal/internal/collab/service"
	"paperpal/internal/collab/store"
	"paperpal/internal/metrics"
)

type noopHub struct{}

func (noopHub) Publish(model.Event, string) {}

func newTestHandler() *Handler {
	svc := service.NewCollabService(store.NewMemoryStore(), noopHub{})
	return NewHandler(svc, metrics.New())
}

// dispatch posts the payload to the handler and decodes the JSON reply into
// a generic map for assertions.
func dispatch(t *testing.T, h *Handler, payload map[string]any) (int, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/collaboration", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Dispatch(rec, req)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decoded))
	return rec.Code, decoded
}

func TestDispatchRejectsNonPost(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/collaboration", nil)
	rec := httptest.NewRecorder()
	h.Dispatch(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDispatchUnknownAction(t *testing.T) {
	h := newTestHandler()

	status, body := dispatch(t, h, map[string]any{"action": "self-destruct"})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid action")
}

func TestUnknownActionsShareOneMetricLabel(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{"action": "self-destruct"})
	dispatch(t, h, map[string]any{"action": "another-bogus-one"})
	dispatch(t, h, map[string]any{"action": model.ActionGetMessages, "documentId": "doc1"})

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.ActionsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ActionsTotal.WithLabelValues(model.ActionGetMessages)))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.ActionsTotal.WithLabelValues("self-destruct")))
}

func TestDispatchMissingFields(t *testing.T) {
	h := newTestHandler()

	status, body := dispatch(t, h, map[string]any{
		"action":     model.ActionJoinDocument,
		"documentId": "doc1",
		// userId and userName missing
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "missing or invalid fields")
}

func TestDispatchInvalidJSON(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/collaboration", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Dispatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinReturnsInitialState(t *testing.T) {
	h := newTestHandler()

	status, body := dispatch(t, h, map[string]any{
		"action":     model.ActionJoinDocument,
		"documentId": "doc1",
		"userId":     "alice",
		"userName":   "Alice",
	})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "admin", body["userRole"])
	assert.Len(t, body["activeUsers"], 1)
	assert.Len(t, body["existingMessages"], 1) // assistant greeting
}

func TestRoleManagementOverHTTP(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
	})
	status, body := dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "bob", "userName": "Bob",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "viewer", body["userRole"])

	// The admin promotes bob.
	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionChangeRole, "documentId": "doc1",
		"userId": "alice", "targetUserId": "bob", "newRole": "editor",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "editor", body["newRole"])

	// A non-admin cannot touch roles.
	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionChangeRole, "documentId": "doc1",
		"userId": "bob", "targetUserId": "alice", "newRole": "viewer",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "insufficient permissions")

	status, _ = dispatch(t, h, map[string]any{
		"action": model.ActionRemoveCollaborator, "documentId": "doc1",
		"userId": "alice", "targetUserId": "bob",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionGetActiveUsers, "documentId": "doc1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["activeUsers"], 1)
}

func TestHighlightRoundTrip(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
	})

	status, body := dispatch(t, h, map[string]any{
		"action": model.ActionAddHighlight, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
		"highlightData": map[string]any{
			"pageNumber": 3, "x": 0.1, "y": 0.2, "width": 0.3, "height": 0.05,
			"color": "#ffeb3b", "text": "interesting passage",
		},
	})
	require.Equal(t, http.StatusOK, status)
	highlight, ok := body["highlight"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, highlight["id"])

	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionGetHighlights, "documentId": "doc1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["highlights"], 1)
}

func TestPrivateMessagesOverHTTP(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
	})

	status, _ := dispatch(t, h, map[string]any{
		"action": model.ActionSendMessage, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
		"messageData": map[string]any{"content": "for bob only", "recipientId": "bob"},
	})
	require.Equal(t, http.StatusOK, status)

	// Without a userId only public messages come back.
	_, body := dispatch(t, h, map[string]any{
		"action": model.ActionGetMessages, "documentId": "doc1",
	})
	assert.Len(t, body["messages"], 1) // just the assistant greeting

	_, body = dispatch(t, h, map[string]any{
		"action": model.ActionGetMessages, "documentId": "doc1", "userId": "bob",
	})
	assert.Len(t, body["messages"], 2)
}

func TestInviteFlowOverHTTP(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
	})

	status, body := dispatch(t, h, map[string]any{
		"action": model.ActionInviteCollaborator, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
		"inviteData": map[string]any{"email": "carol@example.com", "role": "editor"},
	})
	require.Equal(t, http.StatusOK, status)
	invite, ok := body["invite"].(map[string]any)
	require.True(t, ok)
	inviteID, _ := invite["id"].(string)
	require.NotEmpty(t, inviteID)

	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionGetInvites, "documentId": "doc1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["invites"], 1)

	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionAcceptInvite, "documentId": "doc1",
		"userId": "carol",
		"inviteData": map[string]any{"inviteId": inviteID},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "editor", body["role"])

	status, body = dispatch(t, h, map[string]any{
		"action": model.ActionAcceptInvite, "documentId": "doc1",
		"userId": "carol",
		"inviteData": map[string]any{"inviteId": "invite_missing"},
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "not found")
}

func TestTypingIndicatorsOverHTTP(t *testing.T) {
	h := newTestHandler()

	dispatch(t, h, map[string]any{
		"action": model.ActionJoinDocument, "documentId": "doc1",
		"userId": "alice", "userName": "Alice",
	})

	status, _ := dispatch(t, h, map[string]any{
		"action": model.ActionTypingStart, "documentId": "doc1", "userName": "Alice",
	})
	require.Equal(t, http.StatusOK, status)

	_, body := dispatch(t, h, map[string]any{
		"action": model.ActionGetMessages, "documentId": "doc1",
	})
	assert.Equal(t, []any{"Alice"}, body["typingUsers"])

	dispatch(t, h, map[string]any{
		"action": model.ActionTypingStop, "documentId": "doc1", "userName": "Alice",
	})
	_, body = dispatch(t, h, map[string]any{
		"action": model.ActionGetMessages, "documentId": "doc1",
	})
	assert.Empty(t, body["typingUsers"])
}
