// Package messaging publishes story sync events to RabbitMQ so a remote
// replica of the library can follow saves and deletes.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"story-maker/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SyncPublisher sends one event per saved or deleted story.
type SyncPublisher interface {
	PublishStorySync(ctx context.Context, event models.StorySyncEvent) error
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

const (
	publishAttempts = 3
	publishTimeout  = 10 * time.Second
	appID           = "story-maker"
)

type rabbitMQPublisher struct {
	channel   channel
	queueName string
	backoff   time.Duration
	logger    *zap.Logger
}

var _ SyncPublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQSyncPublisher opens a channel on conn and declares the durable
// sync queue. The returned close function releases the channel.
func NewRabbitMQSyncPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (SyncPublisher, func() error, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("sync publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("sync publisher: failed to declare queue %q: %w", queueName, err)
	}
	logger.Info("Sync queue declared", zap.String("queue", queueName))
	p := newPublisher(ch, queueName, logger)
	return p, ch.Close, nil
}

func newPublisher(ch channel, queueName string, logger *zap.Logger) *rabbitMQPublisher {
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		backoff:   100 * time.Millisecond,
		logger:    logger.Named("SyncPublisher"),
	}
}

func (p *rabbitMQPublisher) PublishStorySync(ctx context.Context, event models.StorySyncEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event for story %s: %w", event.StoryID, err)
	}
	return p.publishMessage(ctx, body)
}

// publishMessage tries up to three times with a growing pause.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // default exchange
			p.queueName, // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        appID,
			},
		)
		if err == nil {
			p.logger.Debug("Sync event published", zap.String("queue", p.queueName), zap.Int("attempt", attempt))
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.String("queue", p.queueName), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < publishAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish to %s canceled: %w", p.queueName, ctx.Err())
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}
	}
	return fmt.Errorf("failed to publish to %s after %d attempts: %w", p.queueName, publishAttempts, err)
}

// NopPublisher drops every event. Used when RABBITMQ_URL is empty.
type NopPublisher struct{}

func (NopPublisher) PublishStorySync(context.Context, models.StorySyncEvent) error { return nil }
