package clicks

import (
	"context"
	"strings"
	"time"
)

// Recorder builds and persists click events. Persistence failures are
// returned to the caller, which decides whether they are fatal; on the
// redirect path they never are.
type Recorder struct {
	events  EventRepository
	extract AttributeExtractor
	geo     GeoResolver
	now     func() time.Time
}

func NewRecorder(events EventRepository, extract AttributeExtractor, geo GeoResolver) *Recorder {
	return &Recorder{
		events:  events,
		extract: extract,
		geo:     geo,
		now:     time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, req Request) (*Event, error) {
	return r.RecordAt(ctx, req, r.now())
}

// RecordAt records a click with an explicit occurrence time, used by the
// asynchronous consumer to preserve the original click instant.
func (r *Recorder) RecordAt(ctx context.Context, req Request, at time.Time) (*Event, error) {
	ev := &Event{
		LinkID:     strings.TrimSpace(req.LinkID),
		Timestamp:  at.UTC(),
		IPAddress:  strings.TrimSpace(req.IPAddress),
		UserAgent:  req.UserAgent,
		Referrer:   strings.TrimSpace(req.Referrer),
		Attributes: r.extract.Extract(req.UserAgent),
	}

	if r.geo != nil {
		if loc, ok := r.geo.Resolve(ev.IPAddress); ok {
			ev.Location = loc
		}
	}

	if err := r.events.Insert(ctx, ev); err != nil {
		return nil, err
	}

	return ev, nil
}

// Submit implements Sink with a synchronous store write.
func (r *Recorder) Submit(ctx context.Context, req Request) error {
	_, err := r.Record(ctx, req)
	return err
}

// OutboxSink hands clicks to a durable outbox instead of writing the event
// store directly. Attribute extraction happens downstream, in the consumer.
type OutboxSink struct {
	outbox OutboxEnqueuer
	now    func() time.Time
}

func NewOutboxSink(outbox OutboxEnqueuer) *OutboxSink {
	return &OutboxSink{outbox: outbox, now: time.Now}
}

func (s *OutboxSink) Submit(ctx context.Context, req Request) error {
	return s.outbox.EnqueueClick(ctx, req, s.now().UTC())
}
