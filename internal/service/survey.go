package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"handyvoice/internal/domain"
	"handyvoice/internal/observability"
	"handyvoice/internal/providers/plivo"
	"handyvoice/internal/util"
)

const (
	surveyPrompt = "Hi! You were recently visited by one of our handy men. " +
		"How many stars would you rate your experience? Using your keypad, " +
		"enter your rating between 1 and 5, where 1 is the lowest and 5 is the highest."
	surveyClosing = "Thanks, we value your feedback. We're %s you had a %s star experience. " +
		"We'll use your feedback to continue to improve!"

	surveyValidDigits = "12345"
	gladAbove         = 3
)

// ErrThrottled means the local provider rate limit could not be satisfied in time.
var ErrThrottled = errors.New("survey call throttled")

type CallPlacer interface {
	PlaceCall(ctx context.Context, req plivo.CallRequest) (plivo.CallResponse, int, []byte, error)
}

// PlacedCall is the provider's answer to an outbound call request.
type PlacedCall struct {
	Response plivo.CallResponse
	Status   int
	Raw      []byte
}

// Surveys drives the outbound satisfaction survey.
type Surveys struct {
	Config   RoutingConfig
	Caller   CallPlacer
	Recorder Recorder
	IDGen    func() string
	Limiter  *rate.Limiter
	Breaker  *gobreaker.CircuitBreaker
}

// PlaceSurveyCall dials target from the customer-service number. Failures are
// returned as-is; nothing is retried.
func (s *Surveys) PlaceSurveyCall(ctx context.Context, target string) (PlacedCall, error) {
	if strings.TrimSpace(target) == "" {
		return PlacedCall{}, domain.ErrMissingFields
	}

	if s.Limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			observability.SurveyCalls.WithLabelValues("rate_limited_local", "0").Inc()
			return PlacedCall{}, ErrThrottled
		}
	}

	req := plivo.CallRequest{
		From:      s.Config.CustomerServiceNumber,
		To:        target,
		AnswerURL: s.Config.URL("/surveyCallAnswered"),
		HangupURL: s.Config.URL("/hangup/"),
	}

	start := time.Now()
	res, err := s.executeWithBreaker(ctx, req)
	observability.PlivoLatency.Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		observability.SurveyCalls.WithLabelValues("cb_open", "0").Inc()
		return PlacedCall{}, err
	}
	if err != nil {
		var apiErr *plivo.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Status
		}
		observability.SurveyCalls.WithLabelValues("error", strconv.Itoa(status)).Inc()
		return PlacedCall{}, fmt.Errorf("place survey call: %w", err)
	}

	observability.SurveyCalls.WithLabelValues("ok", strconv.Itoa(res.Status)).Inc()
	return res, nil
}

func (s *Surveys) executeWithBreaker(ctx context.Context, req plivo.CallRequest) (PlacedCall, error) {
	call := func() (any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		defer cancel()

		resp, status, raw, err := s.Caller.PlaceCall(reqCtx, req)
		if err != nil {
			return nil, err
		}
		return PlacedCall{Response: resp, Status: status, Raw: raw}, nil
	}

	var (
		out any
		err error
	)
	if s.Breaker == nil {
		out, err = call()
	} else {
		out, err = s.Breaker.Execute(call)
	}
	if err != nil {
		return PlacedCall{}, err
	}
	return out.(PlacedCall), nil
}

// OnSurveyAnswered asks the customer for a 1-5 keypad rating.
func (s *Surveys) OnSurveyAnswered() *plivo.Response {
	return plivo.NewResponse().AddGetDigits(plivo.GetDigitsOptions{
		Action:      s.Config.URL("/surveyResult"),
		Timeout:     menuTimeoutSeconds,
		NumDigits:   1,
		ValidDigits: surveyValidDigits,
	}, surveyPrompt)
}

// HandleSurveyDigit thanks the customer and records the rating exactly as
// pressed. A failed write is logged and does not change the reply.
func (s *Surveys) HandleSurveyDigit(ctx context.Context, customerPhone, digit string) *plivo.Response {
	tone := ClassifyRating(digit)
	observability.SurveyRatings.WithLabelValues(string(tone)).Inc()

	idGen := s.IDGen
	if idGen == nil {
		idGen = util.NewEventID
	}
	result := domain.SurveyResult{ID: idGen(), CustomerPhone: customerPhone, Rating: digit}
	if err := s.Recorder.RecordSurveyResult(ctx, result); err != nil {
		slog.Error("record survey result failed", "err", err, "id", result.ID, "customer_phone", customerPhone, "rating", digit)
	}

	return plivo.NewResponse().AddSpeak(fmt.Sprintf(surveyClosing, tone, digit))
}

// ClassifyRating is "glad" for ratings above 3. The rating is the leading
// integer of digit ("4#" is 4); input without one counts as "sorry".
func ClassifyRating(digit string) domain.Tone {
	n, ok := leadingInt(digit)
	if !ok || n <= gladAbove {
		return domain.ToneSorry
	}
	return domain.ToneGlad
}

// leadingInt reads an optionally signed run of decimal digits after any
// leading whitespace and ignores whatever follows it.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
