package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studyplan-api/internal/dto"
)

// NotificationPublisher fans dispatched notifications out to other services.
type NotificationPublisher interface {
	Publish(ctx context.Context, event dto.NotificationEvent) error
}

type brokerPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
}

// NewBrokerPublisher publishes to a Redis channel and/or NATS subject derived from channelBase.
// It returns nil when neither broker is available.
func NewBrokerPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) NotificationPublisher {
	if channelBase == "" || (redisClient == nil && natsConn == nil) {
		return nil
	}
	return &brokerPublisher{
		redis:        redisClient,
		redisChannel: channelBase + ":notifications",
		nats:         natsConn,
		natsSubject:  strings.ReplaceAll(channelBase, ":", ".") + ".notifications",
	}
}

func (p *brokerPublisher) Publish(ctx context.Context, event dto.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}
