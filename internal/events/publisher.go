package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auctionlotgo/internal/domain"
)

// Publisher receives lifecycle and bid notifications for downstream
// broadcast. Delivery is fire-and-forget: a publish failure never rolls
// back the state transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event)
}

// RedisPublisher fans events out over one pub/sub channel per auction, so
// any instance subscribed to "auc:<id>:events" picks them up.
type RedisPublisher struct {
	rdc *redis.Client
}

func NewRedisPublisher(rdc *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdc: rdc}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		zap.L().Warn("events.marshal", zap.Error(err))
		return
	}
	channel := "auc:" + evt.AuctionID + ":events"
	if err := p.rdc.Publish(ctx, channel, payload).Err(); err != nil {
		zap.L().Warn("events.publish", zap.String("channel", channel), zap.Error(err))
	}
}

// Nop drops every event; used when no broker is wired.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) {}
