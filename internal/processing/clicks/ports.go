package clicks

import (
	"context"
	"time"
)

type EventRepository interface {
	Insert(ctx context.Context, ev *Event) error
}

// AttributeExtractor classifies a raw User-Agent string. Pure, never fails.
type AttributeExtractor interface {
	Extract(rawUserAgent string) Attributes
}

// GeoResolver maps an IP to a location. ok is false when nothing could be
// resolved; partial results with ok true are fine.
type GeoResolver interface {
	Resolve(ip string) (Location, bool)
}

// Sink accepts a click for eventual persistence. Implementations decide
// whether that is a direct store write or a durable handoff.
type Sink interface {
	Submit(ctx context.Context, req Request) error
}

// OutboxEnqueuer persists a raw click for asynchronous delivery.
type OutboxEnqueuer interface {
	EnqueueClick(ctx context.Context, req Request, occurredAt time.Time) error
}
