package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"handyvoice/internal/domain"
	"handyvoice/internal/observability"
	"handyvoice/internal/publisher"
)

// Recorder persists call records and survey results, either directly or via a queue.
type Recorder interface {
	RecordCall(ctx context.Context, rec domain.CallRecord) error
	RecordSurveyResult(ctx context.Context, res domain.SurveyResult) error
}

type RecordStore interface {
	// InsertCallRecord reports false when a record with the same uuid already exists.
	InsertCallRecord(ctx context.Context, rec domain.CallRecord) (bool, error)
	// InsertSurveyResult reports false when a result with the same id already exists.
	InsertSurveyResult(ctx context.Context, res domain.SurveyResult) (bool, error)
}

// StoreRecorder writes straight to the store and announces new rows on Events
// when a publisher is configured.
type StoreRecorder struct {
	Store       RecordStore
	Events      publisher.Publisher
	TopicPrefix string
}

func (r *StoreRecorder) RecordCall(ctx context.Context, rec domain.CallRecord) error {
	inserted, err := r.Store.InsertCallRecord(ctx, rec)
	if err != nil {
		observability.RecordWrites.WithLabelValues("call", "error").Inc()
		return err
	}
	if !inserted {
		observability.RecordWrites.WithLabelValues("call", "duplicate").Inc()
		return nil
	}
	observability.RecordWrites.WithLabelValues("call", "ok").Inc()
	r.publish(ctx, publisher.CallCompletedTopic(r.TopicPrefix, rec.UUID), rec)
	return nil
}

func (r *StoreRecorder) RecordSurveyResult(ctx context.Context, res domain.SurveyResult) error {
	inserted, err := r.Store.InsertSurveyResult(ctx, res)
	if err != nil {
		observability.RecordWrites.WithLabelValues("survey_result", "error").Inc()
		return err
	}
	if !inserted {
		observability.RecordWrites.WithLabelValues("survey_result", "duplicate").Inc()
		return nil
	}
	observability.RecordWrites.WithLabelValues("survey_result", "ok").Inc()
	r.publish(ctx, publisher.SurveyRatedTopic(r.TopicPrefix, res.ID), res)
	return nil
}

func (r *StoreRecorder) publish(ctx context.Context, topic string, v any) {
	if r.Events == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Events.Publish(ctx, topic, payload); err != nil {
		observability.EventPublishes.WithLabelValues("error").Inc()
		slog.Warn("event publish failed", "err", err, "topic", topic)
		return
	}
	observability.EventPublishes.WithLabelValues("ok").Inc()
}
