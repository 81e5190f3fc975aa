// Package events fans detection events out to subscribers outside the request
// path: WebSocket viewers and an MQTT broker.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuldeep456789/VisionIQ/internal/dto"
)

// Publisher delivers a detection event somewhere.
type Publisher interface {
	Publish(ctx context.Context, event dto.DetectionEvent) error
	Name() string
}

// Multi publishes to every publisher. A failure does not stop the others;
// all failures are returned joined.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, event dto.DetectionEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) Publish(context.Context, dto.DetectionEvent) error { return nil }
