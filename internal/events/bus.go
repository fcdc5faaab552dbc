// Package events carries cross-service notifications. The only event
// this service consumes today is user deletion, which drives the
// batched erasure of the user's intake data.
package events

import "context"

// StreamUserDeleted is the stream upstream services publish deletion
// events to. This service also re-publishes to it to split a large
// erasure into bounded passes.
const StreamUserDeleted = "user-deleted"

// ConsumerGroup identifies this service's position in the stream.
const ConsumerGroup = "intake-service"

// UserDeletedEvent signals that a user account was erased upstream and
// all of their intake data must go away.
type UserDeletedEvent struct {
	UserID int64 `json:"userId"`
}

// Bus publishes events for asynchronous consumption.
type Bus interface {
	PublishUserDeleted(ctx context.Context, event UserDeletedEvent) error
}

// Handler processes one raw event payload. A nil return acknowledges
// the message; an error leaves it pending for redelivery.
type Handler func(ctx context.Context, payload []byte) error
