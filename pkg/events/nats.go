// Package events delivers booking events to message brokers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
)

// DefaultSubjectPrefix namespaces booking subjects, e.g. travelin.booking.created.
const DefaultSubjectPrefix = "travelin"

// Subject returns the broker subject for an event type.
func Subject(prefix string, typ domain.EventType) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + string(typ)
}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher writes booking events to per-type NATS subjects.
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
}

// NewNATSPublisher builds a publisher using the provided NATS connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	if conn == nil {
		return &NATSPublisher{prefix: prefix}
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Publish satisfies domain.EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event domain.Event) error {
	if p == nil || p.conn == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(Subject(p.prefix, event.Type))
	msg.Data = payload
	msg.Header.Set("x-trace-id", traceIDFromContext(ctx))
	msg.Header.Set("x-event-type", string(event.Type))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
