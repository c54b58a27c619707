package sqsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"handyvoice/internal/domain"
	"handyvoice/internal/service"
)

type RecordKind string

const (
	KindCallRecord   RecordKind = "call_record"
	KindSurveyResult RecordKind = "survey_result"
)

// RecordEvent is the queued envelope for one pending write.
// Keep it small; SQS has a 256KB message size limit.
type RecordEvent struct {
	Kind       RecordKind           `json:"kind"`
	Call       *domain.CallRecord   `json:"call,omitempty"`
	Survey     *domain.SurveyResult `json:"survey,omitempty"`
	ReceivedAt time.Time            `json:"receivedAt"`
}

var errEmptyEvent = errors.New("record event has no payload")

func (e RecordEvent) validate() error {
	switch e.Kind {
	case KindCallRecord:
		if e.Call == nil {
			return errEmptyEvent
		}
	case KindSurveyResult:
		if e.Survey == nil {
			return errEmptyEvent
		}
	default:
		return fmt.Errorf("unknown record kind %q", e.Kind)
	}
	return nil
}

// decodeEvent rejects bodies that can never be applied so they are dropped
// instead of being redriven forever.
func decodeEvent(body string) (RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return RecordEvent{}, err
	}
	if err := ev.validate(); err != nil {
		return RecordEvent{}, err
	}
	return ev, nil
}

// Apply writes ev through rec; the recorder process uses it as its handler.
func Apply(ctx context.Context, rec service.Recorder, ev RecordEvent) error {
	switch ev.Kind {
	case KindCallRecord:
		return rec.RecordCall(ctx, *ev.Call)
	case KindSurveyResult:
		return rec.RecordSurveyResult(ctx, *ev.Survey)
	}
	return fmt.Errorf("unknown record kind %q", ev.Kind)
}
