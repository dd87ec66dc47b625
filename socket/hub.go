package socket

import (
	"encoding/json"
	"sync"
	"time"

	"paperpal/internal/collab/model"
	"paperpal/internal/collab/store"
	"paperpal/internal/metrics"
	"paperpal/pkg/logger"
)

// Outbound is a broadcast request: one event, fanned out to every client in
// the event's document room except ExcludeUserID.
type Outbound struct {
	Event         model.Event
	ExcludeUserID string
}

// Hub owns the push side of the collaboration engine. Clients register one
// long-lived connection per (document, user); state-changing callers publish
// events through the Broadcast channel and the hub fans them out. Delivery
// is best effort: a client whose send buffer is full is dropped, never
// retried, and the triggering mutation is unaffected.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan Outbound
	Register   chan *Client
	Unregister chan *Client

	store   store.SessionStore
	metrics *metrics.Metrics
	mu      sync.Mutex
}

func NewHub(st store.SessionStore, m *metrics.Metrics) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan Outbound),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		store:      st,
		metrics:    m,
	}
}

// Publish implements the broadcaster consumed by the collab service.
func (h *Hub) Publish(event model.Event, excludeUserID string) {
	h.Broadcast <- Outbound{Event: event, ExcludeUserID: excludeUserID}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Registering doubles as joining the session, so stream-only
			// clients show up in poll results too.
			st := h.store.Join(client.DocID, client.UserID, client.UserName)

			h.mu.Lock()
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
			}
			h.Rooms[client.DocID][client] = true
			h.mu.Unlock()
			h.metrics.StreamClients.Inc()

			event := joinedEvent(client, st)
			if payload, err := json.Marshal(event); err == nil {
				client.Send <- payload
			}
			// Everyone else learns about the new participant; the joiner
			// already has the snapshot.
			h.fanout(Outbound{Event: event, ExcludeUserID: client.UserID})

		case client := <-h.Unregister:
			h.teardown(client)

		case out := <-h.Broadcast:
			h.fanout(out)
		}
	}
}

// teardown runs the disconnect path: remove the client from its room, drop
// its presence record and tell the remaining participants it left. Safe to
// call twice; the second call is a no-op.
func (h *Hub) teardown(client *Client) {
	h.mu.Lock()
	room, ok := h.Rooms[client.DocID]
	if !ok || !room[client] {
		h.mu.Unlock()
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.Rooms, client.DocID)
	}
	h.mu.Unlock()

	h.metrics.StreamClients.Dec()
	h.store.Leave(client.DocID, client.UserID)
	client.Conn.Close()

	h.fanout(Outbound{
		Event: model.Event{
			Type:       model.EventUserLeft,
			DocumentID: client.DocID,
			UserID:     client.UserID,
			UserName:   client.UserName,
			Timestamp:  time.Now(),
		},
		ExcludeUserID: client.UserID,
	})
}

func (h *Hub) fanout(out Outbound) {
	payload, err := json.Marshal(out.Event)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast event: %v", err)
		return
	}
	h.metrics.EventsTotal.WithLabelValues(string(out.Event.Type)).Inc()

	// Copy the recipient list so no lock is held during channel sends.
	h.mu.Lock()
	recipients := make([]*Client, 0, len(h.Rooms[out.Event.DocumentID]))
	for client := range h.Rooms[out.Event.DocumentID] {
		if client.UserID != out.ExcludeUserID {
			recipients = append(recipients, client)
		}
	}
	h.mu.Unlock()

	var stale []*Client
	for _, client := range recipients {
		select {
		case client.Send <- payload:
		default:
			// Lagging client: drop it rather than block the hub.
			logger.Sugar.Warnf("Client %s's send buffer is full, dropping", client.UserID)
			h.metrics.DroppedClients.Inc()
			stale = append(stale, client)
		}
	}
	for _, client := range stale {
		h.teardown(client)
	}
}

func joinedEvent(client *Client, st store.JoinState) model.Event {
	snapshot := model.SessionSnapshot{
		ActiveUsers: st.ActiveUsers,
		Annotations: st.Highlights,
		Cursors:     st.Cursors,
	}
	data, _ := json.Marshal(snapshot)
	return model.Event{
		Type:       model.EventUserJoined,
		DocumentID: client.DocID,
		UserID:     client.UserID,
		UserName:   client.UserName,
		Data:       data,
		Timestamp:  time.Now(),
	}
}
