package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/render"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the Redis channel instances use to reach each other's clients.
const ClusterChannel = "docassist:deliveries"

// ErrNoRecipient means the user has no live connection on any instance we can see.
var ErrNoRecipient = errors.New("no connected client for user")

// Hub tracks live chat-client connections per sender id and pushes export
// artifacts to them. It implements delivery.Sender.
type Hub struct {
	// Sender id -> connections (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out, may be nil
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

// artifactInfo is what clients learn about an artifact. The server-side
// handle stays private.
type artifactInfo struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

type artifactNotice struct {
	Type string       `json:"type"`
	Data artifactInfo `json:"data"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns registration until ctx ends. Remaining connections are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// remove drops a client once; a second call for the same client is a no-op.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.UserID]
	for i, c := range clients {
		if c != client {
			continue
		}
		h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
		close(client.Send)
		if len(h.clients[client.UserID]) == 0 {
			delete(h.clients, client.UserID)
			h.logger.Info("HUB", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
		}
		return
	}
}

// Register hands a connection to the hub. It returns false after the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Connected reports how many local connections the user has.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send pushes an artifact notice to every device of userID, locally and,
// when Redis is configured, on the other instances.
func (h *Hub) Send(ctx context.Context, userID string, artifact render.Artifact) error {
	data, err := json.Marshal(artifactNotice{
		Type: "artifact",
		Data: artifactInfo{Filename: artifact.Filename, Format: artifact.Format, Size: artifact.Size},
	})
	if err != nil {
		return err
	}

	delivered := h.deliverLocal(userID, data)

	if h.rdb != nil {
		payload, err := json.Marshal(clusterMessage{
			Origin:       h.instanceID,
			TargetUserID: userID,
			Message:      data,
		})
		if err != nil {
			if delivered == 0 {
				return err
			}
			h.logger.Warn("HUB", "Cluster message encode failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
			return nil
		}
		if err := h.rdb.Publish(ctx, ClusterChannel, payload).Err(); err != nil {
			if delivered == 0 {
				return err
			}
			h.logger.Warn("HUB", "Cluster publish failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
		return nil
	}

	if delivered == 0 {
		return ErrNoRecipient
	}
	return nil
}

func (h *Hub) deliverLocal(userID string, data []byte) int {
	// Sends happen under the read lock so remove cannot close a channel mid-send.
	h.mu.RLock()
	delivered := 0
	var stale []*Client
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn("HUB", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		go h.Unregister(client)
	}
	return delivered
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.TargetUserID, payload.Message)
		}
	}
}
