package pubsub

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/transport/ws"
)

const (
	channelPrefix  = "user:"
	publishTimeout = 2 * time.Second
)

// Channel is the Redis channel carrying realtime events for id.
func Channel(id domain.Identity) string {
	return channelPrefix + id.String()
}

func identityFromChannel(channel string) (domain.Identity, bool) {
	id, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || id == "" {
		return "", false
	}
	return domain.Identity(id), true
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Publisher implements service.Publisher over Redis so every instance's
// relay can reach clients connected to it.
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) PublishNotification(n *domain.Notification) {
	p.publish(ws.EventTypeNotificationNew, []domain.Identity{n.Recipient}, n)
}

func (p *Publisher) PublishMessage(recipients []domain.Identity, msg *domain.Message) {
	p.publish(ws.EventTypeMessageNew, recipients, msg)
}

func (p *Publisher) publish(eventType string, recipients []domain.Identity, payload any) {
	data, err := ws.EncodeEvent(eventType, payload)
	if err != nil {
		p.logger.Error("pubsub: marshal error", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	_, err = p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range recipients {
			pipe.Publish(ctx, Channel(id), data)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("pubsub: publish failed", "event", eventType, "recipients", len(recipients), "error", err)
	}
}

// Deliverer hands an encoded event to local connections.
type Deliverer interface {
	Deliver(recipients []domain.Identity, data []byte)
}

// Relay forwards events published on any user channel to the local hub.
type Relay struct {
	rdb    *redis.Client
	hub    Deliverer
	logger *slog.Logger
}

func NewRelay(rdb *redis.Client, hub Deliverer, logger *slog.Logger) *Relay {
	return &Relay{rdb: rdb, hub: hub, logger: logger}
}

// Run subscribes and relays until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	// Wait for the subscription confirmation so errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	r.logger.Info("pubsub relay subscribed", "pattern", channelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch(msg)
		}
	}
}

func (r *Relay) dispatch(msg *redis.Message) {
	id, ok := identityFromChannel(msg.Channel)
	if !ok {
		r.logger.Warn("pubsub: unexpected channel", "channel", msg.Channel)
		return
	}
	r.hub.Deliver([]domain.Identity{id}, []byte(msg.Payload))
}
