package sqsqueue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"handyvoice/internal/domain"
	"handyvoice/internal/observability"
	"handyvoice/internal/util"
)

type SendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Producer queues writes for the recorder process instead of writing inline.
type Producer struct {
	SQS      SendAPI
	QueueURL string
}

func (p *Producer) RecordCall(ctx context.Context, rec domain.CallRecord) error {
	return p.enqueue(ctx, RecordEvent{Kind: KindCallRecord, Call: &rec, ReceivedAt: util.NowUTC()})
}

func (p *Producer) RecordSurveyResult(ctx context.Context, res domain.SurveyResult) error {
	return p.enqueue(ctx, RecordEvent{Kind: KindSurveyResult, Survey: &res, ReceivedAt: util.NowUTC()})
}

func (p *Producer) enqueue(ctx context.Context, ev RecordEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: str(string(body)),
	})
	if err != nil {
		observability.RecordWrites.WithLabelValues(string(ev.Kind), "enqueue_error").Inc()
		return err
	}
	observability.RecordWrites.WithLabelValues(string(ev.Kind), "queued").Inc()
	return nil
}

func str(s string) *string { return &s }
