package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"paperpal/internal/collab/model"
	"paperpal/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The viewer runs on a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live stream connection for a (document, user) pair. Roles
// are never cached on the connection; the edit gate resolves the role from
// the store per event so change-role and remove-collaborator apply to open
// streams immediately.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	DocID    string
	UserID   string
	UserName string
	Send     chan []byte
}

// ServeWs upgrades the request and hands the connection to the hub. The
// first frame the client receives is a user_joined snapshot; cleanup and the
// user_left broadcast run when the connection drops.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("documentId")
	userID := r.URL.Query().Get("userId")
	userName := r.URL.Query().Get("userName")
	if docID == "" || userID == "" {
		http.Error(w, "Missing documentId or userId", http.StatusBadRequest)
		return
	}
	if userName == "" {
		userName = "Anonymous"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:      hub,
		Conn:     conn,
		DocID:    docID,
		UserID:   userID,
		UserName: userName,
		Send:     make(chan []byte, 256),
	}
	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var event model.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Sugar.Errorf("Error unmarshalling event: %v", err)
			continue
		}

		// Overwrite identity fields with the server-side values so a client
		// cannot emit events on behalf of someone else.
		event.DocumentID = c.DocID
		event.UserID = c.UserID
		event.UserName = c.UserName
		event.Timestamp = time.Now()

		switch event.Type {
		case model.EventCursorMoved:
			c.Hub.store.SetCursor(c.DocID, c.UserID, event.Data)

		case model.EventAnnotationAdded:
			if role, ok := c.Hub.store.RoleOf(c.DocID, c.UserID); !ok || !role.CanEdit() {
				logger.Sugar.Warnf("Permission denied: user %s (role %s) tried to annotate doc %s", c.UserID, role, c.DocID)
				continue
			}
			var input model.HighlightInput
			if err := json.Unmarshal(event.Data, &input); err != nil {
				logger.Sugar.Errorf("Error unmarshalling highlight: %v", err)
				continue
			}
			stored := c.Hub.store.AddHighlight(c.DocID, model.Highlight{
				UserID:     c.UserID,
				UserName:   c.UserName,
				PageNumber: input.PageNumber,
				X:          input.X,
				Y:          input.Y,
				Width:      input.Width,
				Height:     input.Height,
				Color:      input.Color,
				Text:       input.Text,
			})
			event.Data, _ = json.Marshal(stored)

		case model.EventAnnotationUpdated:
			if role, ok := c.Hub.store.RoleOf(c.DocID, c.UserID); !ok || !role.CanEdit() {
				logger.Sugar.Warnf("Permission denied: user %s (role %s) tried to edit annotation on doc %s", c.UserID, role, c.DocID)
				continue
			}
			var highlight model.Highlight
			if err := json.Unmarshal(event.Data, &highlight); err != nil {
				logger.Sugar.Errorf("Error unmarshalling highlight update: %v", err)
				continue
			}
			if !c.Hub.store.UpdateHighlight(c.DocID, highlight) {
				continue
			}
			event.Data, _ = json.Marshal(highlight)

		default:
			// Clients only originate cursor and annotation events.
			continue
		}

		c.Hub.Publish(event, c.UserID)
	}
}

func (c *Client) writePump() {
	// Ping every 30s to keep the connection alive and detect drops.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
