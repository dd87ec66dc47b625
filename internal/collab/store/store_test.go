package store

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperpal/internal/collab/model"
)

func TestFirstJoinerBecomesAdmin(t *testing.T) {
	s := NewMemoryStore()

	alice := s.Join("doc1", "alice", "Alice")
	assert.Equal(t, model.RoleAdmin, alice.Role)

	bob := s.Join("doc1", "bob", "Bob")
	assert.Equal(t, model.RoleViewer, bob.Role)

	carol := s.Join("doc1", "carol", "Carol")
	assert.Equal(t, model.RoleViewer, carol.Role)

	// A different document gets its own first admin.
	dave := s.Join("doc2", "dave", "Dave")
	assert.Equal(t, model.RoleAdmin, dave.Role)
}

func TestRejoinIsIdempotent(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	again := s.Join("doc1", "alice", "Alice")

	assert.Equal(t, model.RoleAdmin, again.Role)
	assert.Len(t, s.ActiveUsers("doc1"), 1)
}

func TestJoinDetachesFromPreviousDocument(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	s.Join("doc2", "alice", "Alice")

	assert.Empty(t, s.ActiveUsers("doc1"))
	require.Len(t, s.ActiveUsers("doc2"), 1)
	assert.Equal(t, "doc2", s.ActiveUsers("doc2")[0].DocumentID)

	// The role earned on doc1 is still on record.
	role, ok := s.RoleOf("doc1", "alice")
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, role)
}

func TestLeavePreservesRole(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	s.Join("doc1", "bob", "Bob")
	s.Leave("doc1", "bob")

	assert.Len(t, s.ActiveUsers("doc1"), 1)

	rejoined := s.Join("doc1", "bob", "Bob")
	assert.Equal(t, model.RoleViewer, rejoined.Role)
}

func TestRemoveCollaboratorDeletesRole(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	s.Join("doc1", "bob", "Bob")
	s.AssignRole("doc1", "bob", model.RoleEditor)

	s.RemoveCollaborator("doc1", "bob")

	assert.Len(t, s.ActiveUsers("doc1"), 1)
	_, ok := s.RoleOf("doc1", "bob")
	assert.False(t, ok)

	// With the role record gone a rejoin starts over as viewer.
	rejoined := s.Join("doc1", "bob", "Bob")
	assert.Equal(t, model.RoleViewer, rejoined.Role)
}

func TestAssignRoleRefreshesPresence(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	s.Join("doc1", "bob", "Bob")
	s.AssignRole("doc1", "bob", model.RoleEditor)

	users := s.ActiveUsers("doc1")
	require.Len(t, users, 2)
	for _, u := range users {
		if u.UserID == "bob" {
			assert.Equal(t, model.RoleEditor, u.Role)
		}
	}
}

func TestUpdateActivity(t *testing.T) {
	s := NewMemoryStore()
	s.Join("doc1", "alice", "Alice")

	s.UpdateActivity("doc1", "alice", model.ActivityEditing)

	users := s.ActiveUsers("doc1")
	require.Len(t, users, 1)
	assert.Equal(t, model.ActivityEditing, users[0].Activity)

	// Untracked users are ignored.
	s.UpdateActivity("doc1", "ghost", model.ActivityIdle)
	assert.Len(t, s.ActiveUsers("doc1"), 1)
}

func TestPostMessageAssignsIDAndKeepsOrder(t *testing.T) {
	s := NewMemoryStore()
	s.Join("doc1", "alice", "Alice")

	first := s.PostMessage("doc1", model.ChatMessage{UserID: "alice", UserName: "Alice", Content: "one"})
	second := s.PostMessage("doc1", model.ChatMessage{UserID: "alice", UserName: "Alice", Content: "two"})

	assert.True(t, strings.HasPrefix(first.ID, "msg_"))
	assert.True(t, strings.HasSuffix(first.ID, "_alice"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.MessageText, first.Type)

	messages := s.Messages("doc1", "alice")
	require.Len(t, messages, 3) // assistant greeting + two posts
	assert.Equal(t, "one", messages[1].Content)
	assert.Equal(t, "two", messages[2].Content)
}

func TestAssistantGreetingSeededOnce(t *testing.T) {
	s := NewMemoryStore()

	s.Join("doc1", "alice", "Alice")
	s.Join("doc1", "bob", "Bob")

	messages := s.Messages("doc1", "")
	require.Len(t, messages, 1)
	assert.Equal(t, "ai-assistant", messages[0].UserID)
	assert.Equal(t, model.MessageAIResponse, messages[0].Type)
}

func TestPrivateMessageVisibility(t *testing.T) {
	s := NewMemoryStore()
	s.Join("doc1", "alice", "Alice")

	s.PostMessage("doc1", model.ChatMessage{UserID: "alice", UserName: "Alice", Content: "public"})
	s.PostMessage("doc1", model.ChatMessage{
		UserID: "alice", UserName: "Alice", Content: "secret",
		Type: model.MessagePrivate, RecipientID: "bob",
	})

	contents := func(msgs []model.ChatMessage) []string {
		var out []string
		for _, m := range msgs {
			out = append(out, m.Content)
		}
		return out
	}

	assert.Contains(t, contents(s.Messages("doc1", "alice")), "secret") // sender sees it
	assert.Contains(t, contents(s.Messages("doc1", "bob")), "secret")   // recipient sees it
	assert.NotContains(t, contents(s.Messages("doc1", "carol")), "secret")
	assert.NotContains(t, contents(s.Messages("doc1", "")), "secret")
}

func TestHighlightsAppendInCallOrder(t *testing.T) {
	s := NewMemoryStore()

	for _, text := range []string{"a", "b", "c"} {
		s.AddHighlight("doc1", model.Highlight{UserID: "alice", Text: text, PageNumber: 3})
	}

	highlights := s.Highlights("doc1")
	require.Len(t, highlights, 3)
	assert.Equal(t, "a", highlights[0].Text)
	assert.Equal(t, "c", highlights[2].Text)
	assert.NotEmpty(t, highlights[0].ID)
	assert.NotEqual(t, highlights[0].ID, highlights[1].ID)
	assert.Equal(t, "doc1", highlights[0].DocumentID)
}

func TestUpdateHighlight(t *testing.T) {
	s := NewMemoryStore()

	stored := s.AddHighlight("doc1", model.Highlight{UserID: "alice", Text: "draft"})

	stored.Text = "final"
	require.True(t, s.UpdateHighlight("doc1", stored))
	assert.Equal(t, "final", s.Highlights("doc1")[0].Text)

	assert.False(t, s.UpdateHighlight("doc1", model.Highlight{ID: "missing"}))
}

func TestInviteLifecycle(t *testing.T) {
	s := NewMemoryStore()

	inv := s.CreateInvite("doc1", model.Invite{
		InvitedBy: "alice",
		Email:     "bob@example.com",
		Role:      model.RoleEditor,
	})
	assert.True(t, strings.HasPrefix(inv.ID, "invite_"))
	assert.Equal(t, model.InvitePending, inv.Status)

	accepted, ok := s.AcceptInvite("doc1", inv.ID, "bob")
	require.True(t, ok)
	assert.Equal(t, model.InviteAccepted, accepted.Status)

	role, ok := s.RoleOf("doc1", "bob")
	require.True(t, ok)
	assert.Equal(t, model.RoleEditor, role)

	// Accepting twice re-applies the role without erroring.
	_, ok = s.AcceptInvite("doc1", inv.ID, "bob")
	assert.True(t, ok)

	_, ok = s.AcceptInvite("doc1", "invite_missing", "bob")
	assert.False(t, ok)
}

func TestCursorTracking(t *testing.T) {
	s := NewMemoryStore()
	s.Join("doc1", "alice", "Alice")

	s.SetCursor("doc1", "alice", json.RawMessage(`{"x":0.5,"y":0.25,"pageNumber":2}`))

	cursors := s.Cursors("doc1")
	require.Contains(t, cursors, "alice")
	assert.JSONEq(t, `{"x":0.5,"y":0.25,"pageNumber":2}`, string(cursors["alice"]))

	// Leaving drops the cursor along with the presence entry.
	s.Leave("doc1", "alice")
	assert.Empty(t, s.Cursors("doc1"))
}

func TestTypingLifecycle(t *testing.T) {
	s := NewMemoryStore()

	s.StartTyping("doc1", "Alice")
	s.StartTyping("doc1", "Bob")
	assert.Equal(t, []string{"Alice", "Bob"}, s.TypingUsers("doc1"))

	s.StopTyping("doc1", "Bob")
	assert.Equal(t, []string{"Alice"}, s.TypingUsers("doc1"))

	// Posting a message clears the sender's indicator.
	s.PostMessage("doc1", model.ChatMessage{UserID: "alice", UserName: "Alice", Content: "done typing"})
	assert.Empty(t, s.TypingUsers("doc1"))
}
