package clicks

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Hand-written mocks ---

type mockEventRepo struct {
	insertFn func(ctx context.Context, ev *Event) error
	inserted []*Event
}

func (m *mockEventRepo) Insert(ctx context.Context, ev *Event) error {
	m.inserted = append(m.inserted, ev)
	if m.insertFn != nil {
		return m.insertFn(ctx, ev)
	}
	return nil
}

type mockExtractor struct {
	attrs Attributes
}

func (m *mockExtractor) Extract(string) Attributes { return m.attrs }

type mockGeo struct {
	loc Location
	ok  bool
}

func (m *mockGeo) Resolve(string) (Location, bool) { return m.loc, m.ok }

type mockOutbox struct {
	enqueueFn func(ctx context.Context, req Request, at time.Time) error
}

func (m *mockOutbox) EnqueueClick(ctx context.Context, req Request, at time.Time) error {
	return m.enqueueFn(ctx, req, at)
}

func newTestRecorder(repo *mockEventRepo, ex *mockExtractor, geo GeoResolver) *Recorder {
	r := NewRecorder(repo, ex, geo)
	r.now = func() time.Time {
		return time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	}
	return r
}

// --- Tests ---

func TestRecord_BuildsEvent(t *testing.T) {
	repo := &mockEventRepo{}
	ex := &mockExtractor{attrs: Attributes{
		DeviceType: DeviceMobile,
		Browser:    "Chrome",
		OS:         "Android",
	}}
	geo := &mockGeo{loc: Location{Country: "BR", City: "Sao Paulo"}, ok: true}

	r := newTestRecorder(repo, ex, geo)

	ev, err := r.Record(context.Background(), Request{
		LinkID:    "  abcd1234  ",
		IPAddress: " 200.1.2.3 ",
		UserAgent: "Mozilla/5.0 (Linux; Android 14)",
		Referrer:  " https://google.com ",
	})
	if err != nil {
		t.Fatal(err)
	}

	if ev.LinkID != "abcd1234" {
		t.Errorf("got linkID %q", ev.LinkID)
	}
	if ev.IPAddress != "200.1.2.3" {
		t.Errorf("got ip %q", ev.IPAddress)
	}
	if ev.Referrer != "https://google.com" {
		t.Errorf("got referrer %q", ev.Referrer)
	}
	if ev.DeviceType != DeviceMobile || ev.Browser != "Chrome" {
		t.Errorf("attributes: got %+v", ev.Attributes)
	}
	if ev.Country != "BR" || ev.City != "Sao Paulo" {
		t.Errorf("location: got %+v", ev.Location)
	}

	want := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, want)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
}

func TestRecordAt_PreservesOccurrenceTime(t *testing.T) {
	repo := &mockEventRepo{}
	r := newTestRecorder(repo, &mockExtractor{}, &mockGeo{})

	at := time.Date(2025, 4, 1, 3, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	ev, err := r.RecordAt(context.Background(), Request{LinkID: "abcd1234"}, at)
	if err != nil {
		t.Fatal(err)
	}

	want := at.UTC()
	if !ev.Timestamp.Equal(want) || ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v in UTC", ev.Timestamp, want)
	}
}

func TestRecord_GeoMissIsNotFatal(t *testing.T) {
	repo := &mockEventRepo{}
	r := newTestRecorder(repo, &mockExtractor{}, &mockGeo{ok: false})

	ev, err := r.Record(context.Background(), Request{LinkID: "abcd1234", IPAddress: "bogus"})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Location != (Location{}) {
		t.Errorf("expected empty location, got %+v", ev.Location)
	}
}

func TestRecord_InsertFailure(t *testing.T) {
	repo := &mockEventRepo{
		insertFn: func(context.Context, *Event) error { return errors.New("write concern") },
	}
	r := newTestRecorder(repo, &mockExtractor{}, &mockGeo{})

	if _, err := r.Record(context.Background(), Request{LinkID: "abcd1234"}); err == nil {
		t.Fatal("expected insert failure to surface")
	}
}

func TestOutboxSink_Submit(t *testing.T) {
	var gotReq Request
	var gotAt time.Time
	ob := &mockOutbox{
		enqueueFn: func(_ context.Context, req Request, at time.Time) error {
			gotReq = req
			gotAt = at
			return nil
		},
	}

	sink := NewOutboxSink(ob)
	sink.now = func() time.Time {
		return time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	}

	req := Request{LinkID: "abcd1234", IPAddress: "200.1.2.3"}
	if err := sink.Submit(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if gotReq != req {
		t.Errorf("got request %+v", gotReq)
	}
	if !gotAt.Equal(time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("got occurredAt %v", gotAt)
	}
}
