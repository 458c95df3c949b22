// Package events publishes pipeline lifecycle notifications on an asynchronous bus so
// that slow consumers (webhooks, audit trails, storage) never block a render.
package events

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBusClosed is returned when publishing to a closed Bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrPublishTimeout is returned when the publish buffer is full and ctx expires.
	ErrPublishTimeout = errors.New("event publish timeout: buffer full")
)

// Topics published by Publisher.
const (
	TopicStarted   = "image.started"
	TopicProcessed = "image.processed"
	TopicFailed    = "image.failed"
)

// Event is one lifecycle notification.
type Event struct {
	Name      string
	RequestID string
	Source    string
	Target    string
	// Data is the topic payload: *pipeline.Result for processed, error for failed.
	Data      any
	Timestamp time.Time
}

// Handler consumes events of one topic.
type Handler func(ctx context.Context, event Event) error

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe()
}
