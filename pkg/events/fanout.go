package events

import (
	"context"
	"errors"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
)

// Fanout delivers every event to each publisher and joins their errors.
type Fanout []domain.EventPublisher

func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher that holds resources.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if c, ok := p.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }
