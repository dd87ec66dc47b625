// Package syncclient is a Go client for the collaboration endpoint. It
// mirrors what the browser hook does: join a document session, poll the read
// actions every couple of seconds, and reconcile a local copy of the active
// users, highlights and public chat log. Polling is the resilience fallback
// for clients that cannot hold a push stream open.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"paperpal/internal/collab/model"
)

const defaultPollInterval = 2 * time.Second

type Config struct {
	BaseURL    string
	DocumentID string
	UserID     string
	UserName   string
	// Token is sent as a bearer token when the deployment requires auth.
	Token        string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

type Client struct {
	cfg   Config
	httpc *http.Client

	mu          sync.Mutex
	connected   bool
	activeUsers []model.Participant
	highlights  []model.Highlight
	messages    []model.ChatMessage
	typingUsers []string
	lastUpdate  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, httpc: httpc}
}

// Join registers with the session and seeds local state from the snapshot.
func (c *Client) Join(ctx context.Context) error {
	var resp model.JoinResponse
	err := c.post(ctx, map[string]any{
		"action":     model.ActionJoinDocument,
		"documentId": c.cfg.DocumentID,
		"userId":     c.cfg.UserID,
		"userName":   c.cfg.UserName,
	}, &resp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.activeUsers = resp.ActiveUsers
	c.highlights = resp.ExistingHighlights
	c.messages = publicOnly(resp.ExistingMessages)
	c.lastUpdate = time.Now()
	return nil
}

func (c *Client) Leave(ctx context.Context) error {
	err := c.post(ctx, map[string]any{
		"action":     model.ActionLeaveDocument,
		"documentId": c.cfg.DocumentID,
		"userId":     c.cfg.UserID,
	}, &model.StatusResponse{})

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return err
}

// Start joins and begins the background polling loop. Stop cancels it.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Join(ctx); err != nil {
		return err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				// Poll errors are transient by assumption; the next tick
				// retries with fresh state.
				c.poll(pollCtx)
			}
		}
	}()
	return nil
}

// Stop ends polling and leaves the session.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return c.Leave(ctx)
}

// Subscribe connects to the push stream instead of polling. The first frame
// is the session snapshot; later frames are applied as they arrive. The
// connection closes when ctx is cancelled. Join is implicit: registering on
// the stream registers the session.
func (c *Client) Subscribe(ctx context.Context) error {
	q := url.Values{}
	q.Set("documentId", c.cfg.DocumentID)
	q.Set("userId", c.cfg.UserID)
	q.Set("userName", c.cfg.UserName)
	if c.cfg.Token != "" {
		q.Set("token", c.cfg.Token)
	}
	wsURL := "ws" + strings.TrimPrefix(c.cfg.BaseURL, "http") + "/api/collaboration/stream?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		<-subCtx.Done()
		conn.Close()
	}()
	go func() {
		defer close(c.done)
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				c.connected = false
				c.mu.Unlock()
				return
			}
			var event model.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				continue
			}
			c.apply(event)
		}
	}()
	return nil
}

// apply reconciles one push event into local state.
func (c *Client) apply(event model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Type {
	case model.EventUserJoined:
		// Join events carry a full snapshot taken at join time.
		var snapshot model.SessionSnapshot
		if err := json.Unmarshal(event.Data, &snapshot); err == nil {
			c.activeUsers = snapshot.ActiveUsers
			c.highlights = snapshot.Annotations
		}

	case model.EventUserLeft:
		users := c.activeUsers[:0]
		for _, u := range c.activeUsers {
			if u.UserID != event.UserID {
				users = append(users, u)
			}
		}
		c.activeUsers = users

	case model.EventAnnotationAdded:
		var h model.Highlight
		if err := json.Unmarshal(event.Data, &h); err == nil {
			c.highlights = append(c.highlights, h)
		}

	case model.EventAnnotationUpdated:
		var h model.Highlight
		if err := json.Unmarshal(event.Data, &h); err != nil {
			return
		}
		for i := range c.highlights {
			if c.highlights[i].ID == h.ID {
				c.highlights[i] = h
			}
		}
	}
	c.lastUpdate = time.Now()
}

func (c *Client) AddHighlight(ctx context.Context, input model.HighlightInput) (model.Highlight, error) {
	var resp model.HighlightResponse
	err := c.post(ctx, map[string]any{
		"action":        model.ActionAddHighlight,
		"documentId":    c.cfg.DocumentID,
		"userId":        c.cfg.UserID,
		"userName":      c.cfg.UserName,
		"highlightData": input,
	}, &resp)
	if err != nil {
		return model.Highlight{}, err
	}

	// Apply optimistically; the next poll confirms.
	c.mu.Lock()
	c.highlights = append(c.highlights, resp.Highlight)
	c.lastUpdate = time.Now()
	c.mu.Unlock()
	return resp.Highlight, nil
}

func (c *Client) SendMessage(ctx context.Context, content, recipientID string) (model.ChatMessage, error) {
	var resp model.MessageResponse
	err := c.post(ctx, map[string]any{
		"action":     model.ActionSendMessage,
		"documentId": c.cfg.DocumentID,
		"userId":     c.cfg.UserID,
		"userName":   c.cfg.UserName,
		"messageData": model.MessageInput{
			Content:     content,
			RecipientID: recipientID,
		},
	}, &resp)
	if err != nil {
		return model.ChatMessage{}, err
	}
	return resp.ChatMessage, nil
}

func (c *Client) poll(ctx context.Context) {
	var users model.ActiveUsersResponse
	if err := c.post(ctx, map[string]any{
		"action":     model.ActionGetActiveUsers,
		"documentId": c.cfg.DocumentID,
	}, &users); err == nil {
		c.mu.Lock()
		c.activeUsers = users.ActiveUsers
		c.mu.Unlock()
	}

	var highlights model.HighlightsResponse
	if err := c.post(ctx, map[string]any{
		"action":     model.ActionGetHighlights,
		"documentId": c.cfg.DocumentID,
	}, &highlights); err == nil {
		c.mu.Lock()
		c.highlights = highlights.Highlights
		c.mu.Unlock()
	}

	var messages model.MessagesResponse
	if err := c.post(ctx, map[string]any{
		"action":     model.ActionGetMessages,
		"documentId": c.cfg.DocumentID,
		"userId":     c.cfg.UserID,
	}, &messages); err == nil {
		c.mu.Lock()
		c.messages = publicOnly(messages.Messages)
		c.typingUsers = messages.TypingUsers
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.lastUpdate = time.Now()
	c.mu.Unlock()
}

func (c *Client) ActiveUsers() []model.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Participant(nil), c.activeUsers...)
}

func (c *Client) Highlights() []model.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Highlight(nil), c.highlights...)
}

func (c *Client) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatMessage(nil), c.messages...)
}

func (c *Client) TypingUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.typingUsers...)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

func (c *Client) post(ctx context.Context, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/collaboration", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr model.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("collaboration API: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("collaboration API: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// publicOnly drops direct messages; the main chat shows public traffic only.
func publicOnly(messages []model.ChatMessage) []model.ChatMessage {
	public := make([]model.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.RecipientID == "" {
			public = append(public, msg)
		}
	}
	return public
}
