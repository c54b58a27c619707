package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"handyvoice/internal/domain"
	"handyvoice/internal/publisher"
)

type dedupeStore struct {
	calls   map[string]domain.CallRecord
	surveys map[string]domain.SurveyResult
	err     error
}

func newDedupeStore() *dedupeStore {
	return &dedupeStore{calls: map[string]domain.CallRecord{}, surveys: map[string]domain.SurveyResult{}}
}

func (d *dedupeStore) InsertCallRecord(_ context.Context, rec domain.CallRecord) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if _, ok := d.calls[rec.UUID]; ok {
		return false, nil
	}
	d.calls[rec.UUID] = rec
	return true, nil
}

func (d *dedupeStore) InsertSurveyResult(_ context.Context, res domain.SurveyResult) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if _, ok := d.surveys[res.ID]; ok {
		return false, nil
	}
	d.surveys[res.ID] = res
	return true, nil
}

func TestStoreRecorderPublishesNewRowsOnly(t *testing.T) {
	events := publisher.NewMockPublisher()
	r := &StoreRecorder{Store: newDedupeStore(), Events: events, TopicPrefix: "hv"}

	rec := domain.CallRecord{UUID: "abc-123", From: "15551230000"}
	if err := r.RecordCall(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordCall(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	msgs := events.WithSuffix("/completed")
	if len(msgs) != 1 {
		t.Fatalf("expected one completed event, got %d", len(msgs))
	}
	if msgs[0].Topic != "hv/call/abc-123/completed" {
		t.Errorf("topic = %q", msgs[0].Topic)
	}
	var got domain.CallRecord
	if err := json.Unmarshal(msgs[0].Payload, &got); err != nil || got != rec {
		t.Errorf("payload = %s (%v)", msgs[0].Payload, err)
	}
}

func TestStoreRecorderSurveyEvent(t *testing.T) {
	events := publisher.NewMockPublisher()
	r := &StoreRecorder{Store: newDedupeStore(), Events: events}

	if err := r.RecordSurveyResult(context.Background(), domain.SurveyResult{ID: "evt_1", CustomerPhone: "555-1212", Rating: "2"}); err != nil {
		t.Fatal(err)
	}
	if msgs := events.WithSuffix("/rated"); len(msgs) != 1 || msgs[0].Topic != "handyvoice/survey/evt_1/rated" {
		t.Fatalf("unexpected events %+v", msgs)
	}
}

func TestStoreRecorderPublishFailureIsNotAWriteFailure(t *testing.T) {
	events := publisher.NewMockPublisher()
	events.SetError(errors.New("broker gone"))
	r := &StoreRecorder{Store: newDedupeStore(), Events: events}

	if err := r.RecordCall(context.Background(), domain.CallRecord{UUID: "abc-123"}); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
}

func TestStoreRecorderStoreError(t *testing.T) {
	store := newDedupeStore()
	store.err = errors.New("db down")
	r := &StoreRecorder{Store: store}
	if err := r.RecordCall(context.Background(), domain.CallRecord{UUID: "x"}); err == nil {
		t.Fatal("expected store error")
	}
}

func TestCallLogSwallowsErrors(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	(&CallLog{Recorder: rec}).LogCall(context.Background(), domain.CallRecord{UUID: "abc-123"})
	if len(rec.calls) != 1 || rec.calls[0].UUID != "abc-123" {
		t.Fatalf("expected one attempted write, got %+v", rec.calls)
	}
}
