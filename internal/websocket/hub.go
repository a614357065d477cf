package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/pkg/events"
	"confusion-engine-be/pkg/publisher"

	"github.com/redis/go-redis/v9"
)

type outbound struct {
	segmentID string
	data      []byte
}

// Hub fans confusion points out to live dashboard connections. Clients watch
// one segment or, with an empty segment id, every segment.
type Hub struct {
	// Registered clients: segment id -> connections. Owned by Run.
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	// With redis every instance hears every point, wherever it was scored.
	rdb *redis.Client

	// Closed when Run returns.
	done chan struct{}

	connected atomic.Int64
	logger    logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		rdb:        rdb,
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Clustered reports whether points arrive through redis rather than PublishPoint.
func (h *Hub) Clustered() bool {
	return h.rdb != nil
}

func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.Send)
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			h.connected.Store(0)
			return

		case client := <-h.register:
			set, ok := h.clients[client.SegmentID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.SegmentID] = set
			}
			set[client] = struct{}{}
			h.connected.Add(1)
			h.logger.Info(constant.ModulePointStream, "Client registered", map[string]interface{}{"segment_id": client.SegmentID})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(h.clients[msg.segmentID], msg.data)
			h.deliver(h.clients[""], msg.data)
		}
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.SegmentID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	h.connected.Add(-1)
	if len(set) == 0 {
		delete(h.clients, client.SegmentID)
	}
}

// deliver never blocks; a client that cannot keep up is disconnected.
func (h *Hub) deliver(set map[*Client]struct{}, data []byte) {
	for client := range set {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(constant.ModulePointStream, "Client send buffer full, disconnecting", map[string]interface{}{"segment_id": client.SegmentID})
			h.remove(client)
		}
	}
}

func encode(payload events.ConfusionPointPayload) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": events.TypeConfusionPoint,
		"data": payload,
	})
}

func (h *Hub) Name() string { return "websocket" }

// PublishPoint makes the hub a point sink for single-instance deployments.
func (h *Hub) PublishPoint(ctx context.Context, point entity.ConfusionPoint) error {
	payload := events.ConfusionPointEvent{Point: point}.Payload().(events.ConfusionPointPayload)
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	select {
	case h.broadcast <- outbound{segmentID: point.SegmentId, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, publisher.RedisPointsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}

		var payload events.ConfusionPointPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn(constant.ModulePointStream, "Redis point parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		data, err := encode(payload)
		if err != nil {
			continue
		}
		select {
		case h.broadcast <- outbound{segmentID: payload.SegmentId, data: data}:
		case <-ctx.Done():
			return
		}
	}
}
