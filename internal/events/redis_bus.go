package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/macrotracker/intake-service/internal/logger"
)

const payloadField = "payload"

// RedisBus publishes and consumes events over Redis Streams. Consumer
// groups give at-least-once delivery: a message stays pending until the
// handler succeeds and the bus acknowledges it.
type RedisBus struct {
	client   *goredis.Client
	consumer string
	log      *logger.Logger
}

func NewRedisBus(client *goredis.Client, consumerName string, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, consumer: consumerName, log: log}
}

// PublishUserDeleted appends the event to the user-deleted stream.
func (b *RedisBus) PublishUserDeleted(ctx context.Context, event UserDeletedEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: StreamUserDeleted,
		Values: map[string]any{payloadField: string(raw)},
	}).Err()
}

// Consume blocks, feeding user-deleted events to handler until ctx is
// cancelled. Messages left pending by a previous crash are replayed
// before new ones.
func (b *RedisBus) Consume(ctx context.Context, handler Handler) error {
	if err := b.ensureGroup(ctx); err != nil {
		return err
	}

	// Replay this consumer's unacknowledged backlog first.
	if err := b.readOnce(ctx, handler, "0"); err != nil && !errors.Is(err, context.Canceled) {
		b.log.Error("failed to replay pending events", "stream", StreamUserDeleted, "error", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.readOnce(ctx, handler, ">"); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			b.log.Error("event read failed", "stream", StreamUserDeleted, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (b *RedisBus) ensureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, StreamUserDeleted, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (b *RedisBus) readOnce(ctx context.Context, handler Handler, cursor string) error {
	streams, err := b.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: b.consumer,
		Streams:  []string{StreamUserDeleted, cursor},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil
		}
		return err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			payload, _ := msg.Values[payloadField].(string)
			if err := handler(ctx, []byte(payload)); err != nil {
				b.log.Error("event handler failed, leaving message pending",
					"stream", stream.Stream, "id", msg.ID, "error", err)
				continue
			}
			if err := b.client.XAck(ctx, stream.Stream, ConsumerGroup, msg.ID).Err(); err != nil {
				b.log.Error("failed to ack event", "stream", stream.Stream, "id", msg.ID, "error", err)
			}
		}
	}
	return nil
}
