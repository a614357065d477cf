package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

const (
	TopicConfusionPoints = "confusion.points"
	RedisPointsChannel   = "confusion_points"
)

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// NatsSink forwards points and scores to JetStream for the webhook dispatcher
// and analytics consumers.
type NatsSink struct {
	publisher eventPublisher
}

func NewNatsSink(publisher eventPublisher) *NatsSink {
	return &NatsSink{publisher: publisher}
}

func (s *NatsSink) Name() string { return "nats" }

func (s *NatsSink) PublishPoint(ctx context.Context, point entity.ConfusionPoint) error {
	return s.publisher.Publish(ctx, events.ConfusionPointEvent{Point: point})
}

func (s *NatsSink) PublishScore(ctx context.Context, score entity.ConfusionScore) error {
	return s.publisher.Publish(ctx, events.ConfusionScoreEvent{Score: score})
}

// WatermillSink puts points on the in-process bus read by the explanation pipeline.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher) *WatermillSink {
	return &WatermillSink{publisher: publisher, topic: TopicConfusionPoints}
}

func (s *WatermillSink) Name() string { return "watermill" }

func (s *WatermillSink) PublishPoint(_ context.Context, point entity.ConfusionPoint) error {
	data, err := json.Marshal(events.ConfusionPointEvent{Point: point}.Payload())
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	msg := message.NewMessage(point.Id.String(), data)
	msg.Metadata.Set("severity", string(point.Severity))
	return s.publisher.Publish(s.topic, msg)
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink broadcasts points to every instance subscribed to the channel.
type RedisSink struct {
	client  redisPublisher
	channel string
}

func NewRedisSink(client redisPublisher) *RedisSink {
	return &RedisSink{client: client, channel: RedisPointsChannel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) PublishPoint(ctx context.Context, point entity.ConfusionPoint) error {
	data, err := json.Marshal(events.ConfusionPointEvent{Point: point}.Payload())
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	return s.client.Publish(ctx, s.channel, data).Err()
}

type confusionStore interface {
	SavePoint(ctx context.Context, point entity.ConfusionPoint) error
	SaveScore(ctx context.Context, score entity.ConfusionScore) error
}

// RepositorySink writes points and scores to the analytics store.
type RepositorySink struct {
	store confusionStore
}

func NewRepositorySink(store confusionStore) *RepositorySink {
	return &RepositorySink{store: store}
}

func (s *RepositorySink) Name() string { return "postgres" }

func (s *RepositorySink) PublishPoint(ctx context.Context, point entity.ConfusionPoint) error {
	return s.store.SavePoint(ctx, point)
}

func (s *RepositorySink) PublishScore(ctx context.Context, score entity.ConfusionScore) error {
	return s.store.SaveScore(ctx, score)
}
