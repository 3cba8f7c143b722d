package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

type fakeEventRepo struct {
	events map[string]*domain.GeofenceEvent
}

func newFakeEventRepo(events ...domain.GeofenceEvent) *fakeEventRepo {
	r := &fakeEventRepo{events: map[string]*domain.GeofenceEvent{}}
	for i := range events {
		e := events[i]
		r.events[e.ID] = &e
	}
	return r
}

func (r *fakeEventRepo) ListRecent(_ context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error) {
	var out []domain.GeofenceEvent
	for _, e := range r.events {
		if !e.OccurredAt.Before(since) {
			out = append(out, *e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEventRepo) Undelivered(_ context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error) {
	var out []domain.GeofenceEvent
	for _, e := range r.events {
		if e.Delivery != domain.DeliverySent && !e.OccurredAt.Before(since) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEventRepo) DeliveryStatus(_ context.Context, id string) (domain.DeliveryStatus, error) {
	e, ok := r.events[id]
	if !ok {
		return "", database.ErrNotFound
	}
	return e.Delivery, nil
}

func (r *fakeEventRepo) MarkSent(_ context.Context, id string) error {
	if e, ok := r.events[id]; ok && e.Delivery != domain.DeliverySent {
		e.Delivery = domain.DeliverySent
		e.DeliveryError = ""
	}
	return nil
}

func (r *fakeEventRepo) MarkFailed(_ context.Context, id, lastError string) error {
	if e, ok := r.events[id]; ok && e.Delivery != domain.DeliverySent {
		e.Delivery = domain.DeliveryFailed
		e.DeliveryError = lastError
	}
	return nil
}

type fakeAlertPublisher struct {
	calls []*domain.Notification
	err   error
}

func (p *fakeAlertPublisher) Publish(_ context.Context, n *domain.Notification) error {
	p.calls = append(p.calls, n)
	return p.err
}

func newDispatchFixture(t *testing.T, events ...domain.GeofenceEvent) (*DispatcherService, *fakeEventRepo, *fakeAlertPublisher) {
	t.Helper()

	snapshots := NewSnapshotService(&stubSettingsRepo{settings: domain.DefaultSettings()}, &stubZoneRepo{zones: testZones}, zap.NewNop())
	if err := snapshots.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	repo := newFakeEventRepo(events...)
	pub := &fakeAlertPublisher{}
	trackers := &fakeTrackerRepo{trackers: map[string]*domain.Tracker{
		"T1": {ID: "T1", Name: "Juan", Active: true, NotifyTarget: "chat-juan"},
	}}

	d := NewDispatcherService(repo, trackers, snapshots, pub, "supervisors", zap.NewNop())
	d.now = func() time.Time { return testNow }
	return d, repo, pub
}

func pendingEvent(id string, at time.Time) domain.GeofenceEvent {
	return domain.GeofenceEvent{
		ID:         id,
		Type:       domain.EventEnter,
		TrackerID:  "T1",
		ZoneCode:   "Z1",
		Lat:        25.68687,
		Lng:        -100.3161,
		DistanceM:  30,
		AccuracyM:  12,
		OccurredAt: at,
		Delivery:   domain.DeliveryPending,
	}
}

func TestDispatch_SendsAndMarksSent(t *testing.T) {
	event := pendingEvent("e1", testNow)
	d, repo, pub := newDispatchFixture(t, event)

	if err := d.Dispatch(context.Background(), &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.calls))
	}
	n := pub.calls[0]
	if n.Target != "chat-juan" {
		t.Errorf("expected tracker target, got %q", n.Target)
	}
	if !strings.Contains(n.Text, "Juan") || !strings.Contains(n.Text, "Sucursal Centro") || !strings.Contains(n.Text, "arrived at") {
		t.Errorf("unexpected alert text %q", n.Text)
	}
	if repo.events["e1"].Delivery != domain.DeliverySent {
		t.Errorf("expected sent status, got %s", repo.events["e1"].Delivery)
	}
}

func TestDispatch_AlreadySentIsNoOp(t *testing.T) {
	event := pendingEvent("e1", testNow)
	event.Delivery = domain.DeliverySent
	d, _, pub := newDispatchFixture(t, event)

	if err := d.Dispatch(context.Background(), &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("sent event must not be re-published, got %d calls", len(pub.calls))
	}
}

func TestDispatch_FailureMarksFailedButStaysRetryable(t *testing.T) {
	event := pendingEvent("e1", testNow)
	d, repo, pub := newDispatchFixture(t, event)
	pub.err = errors.New("channel unreachable")

	if err := d.Dispatch(context.Background(), &event); err == nil {
		t.Fatal("expected delivery error")
	}
	got := repo.events["e1"]
	if got.Delivery != domain.DeliveryFailed {
		t.Fatalf("expected failed status, got %s", got.Delivery)
	}
	if !strings.Contains(got.DeliveryError, "channel unreachable") {
		t.Errorf("expected last error recorded, got %q", got.DeliveryError)
	}
}

func TestDispatch_AnomalyCloseNeverNotified(t *testing.T) {
	event := pendingEvent("e1", testNow)
	event.Type = domain.EventExit
	event.CloseReason = domain.CloseHealAnomaly
	d, _, pub := newDispatchFixture(t, event)

	if err := d.Dispatch(context.Background(), &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatal("self-heal closes must not produce notifications")
	}
}

func TestDispatch_FallbackTargetWhenTrackerUnknown(t *testing.T) {
	event := pendingEvent("e1", testNow)
	event.TrackerID = "GHOST"
	d, _, pub := newDispatchFixture(t, event)

	if err := d.Dispatch(context.Background(), &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0].Target != "supervisors" {
		t.Fatalf("expected fallback target, got %+v", pub.calls)
	}
}

func TestRetryPending_DeliversAfterOutage(t *testing.T) {
	event := pendingEvent("e1", testNow.Add(-10*time.Minute))
	d, repo, pub := newDispatchFixture(t, event)

	// channel down: direct dispatch fails and the event lands in failed
	pub.err = errors.New("down")
	_ = d.Dispatch(context.Background(), &event)
	if repo.events["e1"].Delivery != domain.DeliveryFailed {
		t.Fatalf("setup: expected failed, got %s", repo.events["e1"].Delivery)
	}

	// channel recovers: the sweep delivers exactly once
	pub.err = nil
	sent, err := d.RetryPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 delivered, got %d", sent)
	}
	if repo.events["e1"].Delivery != domain.DeliverySent {
		t.Fatalf("expected sent, got %s", repo.events["e1"].Delivery)
	}

	// a second sweep finds nothing to do
	sent, err = d.RetryPending(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("expected idle sweep, got sent=%d err=%v", sent, err)
	}
	if len(pub.calls) != 2 {
		t.Fatalf("expected exactly 2 publish attempts total, got %d", len(pub.calls))
	}
}

func TestRetryPending_HonorsLookbackWindow(t *testing.T) {
	recent := pendingEvent("recent", testNow.Add(-10*time.Minute))
	ancient := pendingEvent("ancient", testNow.Add(-2*time.Hour))
	d, repo, _ := newDispatchFixture(t, recent, ancient)

	sent, err := d.RetryPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected only the recent event delivered, got %d", sent)
	}
	if repo.events["ancient"].Delivery != domain.DeliveryPending {
		t.Error("event outside the lookback window must be left alone")
	}
}

func TestRetryPending_ContinuesPastFailures(t *testing.T) {
	first := pendingEvent("e1", testNow.Add(-30*time.Minute))
	second := pendingEvent("e2", testNow.Add(-20*time.Minute))
	d, repo, pub := newDispatchFixture(t, first, second)

	pub.err = errors.New("flaky")

	sent, err := d.RetryPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected 0 delivered while channel down, got %d", sent)
	}
	if repo.events["e1"].Delivery != domain.DeliveryFailed || repo.events["e2"].Delivery != domain.DeliveryFailed {
		t.Error("both events must be attempted and marked failed independently")
	}
	if len(pub.calls) != 2 {
		t.Fatalf("one stuck event must not block the batch, got %d attempts", len(pub.calls))
	}
}

func TestRenderAlert_ExitWithFlags(t *testing.T) {
	battery := 80.0
	event := &domain.GeofenceEvent{
		Type:       domain.EventExit,
		DistanceM:  150,
		AccuracyM:  12,
		Battery:    &battery,
		OccurredAt: time.Date(2024, 5, 6, 19, 50, 0, 0, time.UTC),
		Short:      true,
	}

	text := renderAlert(event, "Juan", "Sucursal Centro", "America/Mexico_City")
	for _, want := range []string{"Juan left Sucursal Centro", "2024-05-06 13:50", "150 m from center", "accuracy 12 m", "battery 80%", "[short visit]"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
}
