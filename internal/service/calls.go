package service

import (
	"context"
	"log/slog"

	"handyvoice/internal/domain"
)

// CallLog stores hangup notifications.
type CallLog struct {
	Recorder Recorder
}

// LogCall records rec and swallows write failures; the provider only needs an ack.
func (c *CallLog) LogCall(ctx context.Context, rec domain.CallRecord) {
	if err := c.Recorder.RecordCall(ctx, rec); err != nil {
		slog.Error("record call failed", "err", err, "call_uuid", rec.UUID, "from", rec.From, "to", rec.To)
	}
}
