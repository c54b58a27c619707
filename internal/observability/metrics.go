package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_webhook_requests_total", Help: "Provider webhook requests"},
		[]string{"route", "status"},
	)
	InboundCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_inbound_calls_total", Help: "Inbound call routing outcomes"},
		[]string{"route"},
	)
	IVRSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_ivr_selections_total", Help: "Appointment menu selections"},
		[]string{"route"},
	)
	SurveyRatings = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_survey_ratings_total", Help: "Survey ratings by tone"},
		[]string{"tone"},
	)
	SurveyCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plivo_call_total", Help: "Plivo outbound call outcomes"},
		[]string{"result", "http_status"},
	)
	PlivoLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plivo_call_latency_seconds", Help: "Plivo call API latency"},
	)
	RecordWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_record_writes_total", Help: "Call record and survey result writes"},
		[]string{"kind", "result"},
	)
	EventPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "handyvoice_event_publishes_total", Help: "MQTT event publishes"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(WebhookRequests, InboundCalls, IVRSelections, SurveyRatings, SurveyCalls, PlivoLatency, RecordWrites, EventPublishes)
}
