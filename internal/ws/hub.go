// Package ws pushes live state to connected clients over websockets: the
// reservation snapshots of courts a client has subscribed to, and the
// client's pending incoming friend requests.
package ws

import (
    "encoding/json"
    "sync"
)

// Hub tracks every connected client, indexed by connection id and by
// user id (one user may hold several connections).
type Hub struct {
    clients    map[string]*Client
    userConns  map[string]map[*Client]bool
    register   chan *Client
    unregister chan *Client
    mu         sync.RWMutex
}

// Message is the envelope for everything pushed to clients.
type Message struct {
    Event string `json:"event"`
    Data  any    `json:"data,omitempty"`
}

// ClientMessage is what clients send: an action plus its arguments.
type ClientMessage struct {
    Action  string `json:"action"`
    CourtID string `json:"court_id,omitempty"`
}

// NewHub returns a Hub. Call Run on its own goroutine before serving
// clients.
func NewHub() *Hub {
    return &Hub{
        clients:    make(map[string]*Client),
        userConns:  make(map[string]map[*Client]bool),
        register:   make(chan *Client),
        unregister: make(chan *Client),
    }
}

// Register hands a freshly upgraded client to the hub.
func (h *Hub) Register(c *Client) {
    h.register <- c
}

// Run processes register/unregister events until the process exits.
func (h *Hub) Run() {
    for {
        select {
        case client := <-h.register:
            h.mu.Lock()
            h.clients[client.ID] = client
            if h.userConns[client.UserID] == nil {
                h.userConns[client.UserID] = make(map[*Client]bool)
            }
            h.userConns[client.UserID][client] = true
            h.mu.Unlock()

        case client := <-h.unregister:
            h.mu.Lock()
            if _, ok := h.clients[client.ID]; ok {
                delete(h.clients, client.ID)
                if h.userConns[client.UserID] != nil {
                    delete(h.userConns[client.UserID], client)
                    if len(h.userConns[client.UserID]) == 0 {
                        delete(h.userConns, client.UserID)
                    }
                }
                client.teardown()
                // Mark the client closed before closing Send so a
                // concurrent SendToUser drops the message instead of
                // sending on a closed channel.
                client.mu.Lock()
                client.closed = true
                client.mu.Unlock()
                close(client.Send)
            }
            h.mu.Unlock()
        }
    }
}

// SendToUser pushes a message to every connection of one user. The
// connection set is snapshotted under the lock; delivery goes through
// the same guarded enqueue as subscription pushes, so a connection that
// unregisters mid-send or cannot keep up loses the message instead of
// blocking the caller or panicking on a closed channel.
func (h *Hub) SendToUser(userID string, msg *Message) {
    h.mu.RLock()
    clients := make([]*Client, 0, len(h.userConns[userID]))
    for client := range h.userConns[userID] {
        clients = append(clients, client)
    }
    h.mu.RUnlock()

    data, err := json.Marshal(msg)
    if err != nil {
        return
    }
    for _, client := range clients {
        client.enqueue(data)
    }
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.userConns[userID]) > 0
}
