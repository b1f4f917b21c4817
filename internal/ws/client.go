package ws

import (
    "encoding/json"
    "log"
    "net/http"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/gorilla/websocket"

    "github.com/openhoops/court-reservation/internal/docstore"
    "github.com/openhoops/court-reservation/internal/ledger"
    "github.com/openhoops/court-reservation/internal/model"
    "github.com/openhoops/court-reservation/internal/social"
)

const (
    writeWait      = 10 * time.Second
    pongWait       = 60 * time.Second
    pingPeriod     = (pongWait * 9) / 10
    maxMessageSize = 512 * 1024
)

// Upgrader is used by the live endpoint handler to upgrade requests.
var Upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    CheckOrigin: func(r *http.Request) bool {
        return true
    },
}

// Client is one websocket connection. It owns a ledger synchronizer for
// the courts the client subscribed to and a live feed of the user's
// pending friend requests; both are torn down when the hub unregisters
// the connection.
type Client struct {
    ID     string
    UserID string
    Hub    *Hub
    Conn   *websocket.Conn
    Send   chan []byte

    courts      *ledger.Synchronizer
    friendUnsub docstore.UnsubscribeFunc

    // mu guards closed; once the hub has closed Send, enqueue must not
    // touch the channel again.
    mu     sync.Mutex
    closed bool
}

// NewClient wires a connection for a user: court snapshots stream through
// the synchronizer, pending friend requests through the social workflow.
// The caller must register the client with the hub and start both pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, l *ledger.Ledger, w *social.Workflow) *Client {
    c := &Client{
        ID:     uuid.New().String(),
        UserID: userID,
        Hub:    hub,
        Conn:   conn,
        Send:   make(chan []byte, 256),
    }
    c.courts = ledger.NewSynchronizer(l, func(snap ledger.Snapshot) {
        c.push(&Message{Event: "court_snapshot", Data: snap})
    })
    c.friendUnsub = w.SubscribePendingIncoming(userID, func(reqs []model.FriendRequest) {
        c.push(&Message{Event: "friend_requests", Data: reqs})
    })
    return c
}

// teardown releases the client's subscriptions. Called by the hub while
// unregistering; after it returns nothing feeds the Send channel.
func (c *Client) teardown() {
    c.courts.DetachAll()
    if c.friendUnsub != nil {
        c.friendUnsub()
    }
}

// push marshals and enqueues without blocking; a client that cannot keep
// up loses messages rather than stalling the subscriptions feeding it.
func (c *Client) push(msg *Message) {
    data, err := json.Marshal(msg)
    if err != nil {
        return
    }
    c.enqueue(data)
}

// enqueue offers data to the send pump. It reports false when the client
// is already closed or its buffer is full; the message is dropped either
// way.
func (c *Client) enqueue(data []byte) bool {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.closed {
        return false
    }
    select {
    case c.Send <- data:
        return true
    default:
        return false
    }
}

// ReadPump reads client messages until the connection dies, then hands
// the client to the hub for teardown.
func (c *Client) ReadPump() {
    defer func() {
        c.Hub.unregister <- c
        c.Conn.Close()
    }()

    c.Conn.SetReadLimit(maxMessageSize)
    c.Conn.SetReadDeadline(time.Now().Add(pongWait))
    c.Conn.SetPongHandler(func(string) error {
        c.Conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })

    for {
        _, message, err := c.Conn.ReadMessage()
        if err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
                log.Printf("websocket error: %v", err)
            }
            break
        }

        c.handleMessage(message)
    }
}

// WritePump drains the Send channel to the connection and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.Conn.Close()
    }()

    for {
        select {
        case message, ok := <-c.Send:
            c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }

            w, err := c.Conn.NextWriter(websocket.TextMessage)
            if err != nil {
                return
            }
            w.Write(message)

            if err := w.Close(); err != nil {
                return
            }

        case <-ticker.C:
            c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

func (c *Client) handleMessage(message []byte) {
    var msg ClientMessage
    if err := json.Unmarshal(message, &msg); err != nil {
        return
    }

    switch msg.Action {
    case "ping":
        c.push(&Message{Event: "pong"})
    case "subscribe_court":
        if msg.CourtID != "" {
            c.courts.Attach(msg.CourtID)
        }
    case "unsubscribe_court":
        if msg.CourtID != "" {
            c.courts.Detach(msg.CourtID)
        }
    }
}
