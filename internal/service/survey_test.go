package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"handyvoice/internal/domain"
	"handyvoice/internal/providers/plivo"
)

type memRecorder struct {
	calls   []domain.CallRecord
	surveys []domain.SurveyResult
	err     error
}

func (m *memRecorder) RecordCall(_ context.Context, rec domain.CallRecord) error {
	m.calls = append(m.calls, rec)
	return m.err
}

func (m *memRecorder) RecordSurveyResult(_ context.Context, res domain.SurveyResult) error {
	m.surveys = append(m.surveys, res)
	return m.err
}

type stubPlacer struct {
	req    plivo.CallRequest
	calls  int
	status int
	raw    []byte
	err    error
}

func (s *stubPlacer) PlaceCall(_ context.Context, req plivo.CallRequest) (plivo.CallResponse, int, []byte, error) {
	s.req = req
	s.calls++
	if s.err != nil {
		return plivo.CallResponse{}, 0, nil, s.err
	}
	return plivo.CallResponse{APIID: "api-1"}, s.status, s.raw, nil
}

func TestClassifyRating(t *testing.T) {
	for digit, want := range map[string]domain.Tone{
		"5": domain.ToneGlad, "4": domain.ToneGlad,
		"3": domain.ToneSorry, "2": domain.ToneSorry, "1": domain.ToneSorry,
		"": domain.ToneSorry, "x": domain.ToneSorry, "9": domain.ToneGlad,
		"5#": domain.ToneGlad, "4abc": domain.ToneGlad, "4.5": domain.ToneGlad,
		" 4": domain.ToneGlad, "3.9": domain.ToneSorry, "-5": domain.ToneSorry,
		"+": domain.ToneSorry, "#4": domain.ToneSorry,
	} {
		if got := ClassifyRating(digit); got != want {
			t.Errorf("ClassifyRating(%q) = %s, want %s", digit, got, want)
		}
	}
}

func TestHandleSurveyDigitPersistsRawDigit(t *testing.T) {
	for _, digit := range []string{"1", "4", "abc"} {
		rec := &memRecorder{}
		s := &Surveys{Config: testRouting, Recorder: rec, IDGen: func() string { return "evt_1" }}

		resp := s.HandleSurveyDigit(context.Background(), "555-1212", digit)

		if len(rec.surveys) != 1 {
			t.Fatalf("%q: expected one result, got %d", digit, len(rec.surveys))
		}
		want := domain.SurveyResult{ID: "evt_1", CustomerPhone: "555-1212", Rating: digit}
		if rec.surveys[0] != want {
			t.Errorf("%q: persisted %+v", digit, rec.surveys[0])
		}
		speech := strings.Join(resp.Speech(), " ")
		if !strings.Contains(speech, string(ClassifyRating(digit))) || !strings.Contains(speech, digit+" star") {
			t.Errorf("%q: closing %q", digit, speech)
		}
	}
}

func TestHandleSurveyDigitDefaultIDs(t *testing.T) {
	rec := &memRecorder{}
	s := &Surveys{Config: testRouting, Recorder: rec}
	s.HandleSurveyDigit(context.Background(), "555-1212", "3")
	s.HandleSurveyDigit(context.Background(), "555-1212", "3")
	if rec.surveys[0].ID == "" || rec.surveys[0].ID == rec.surveys[1].ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", rec.surveys[0].ID, rec.surveys[1].ID)
	}
}

func TestHandleSurveyDigitSwallowsWriteError(t *testing.T) {
	s := &Surveys{Config: testRouting, Recorder: &memRecorder{err: errors.New("db down")}}
	if resp := s.HandleSurveyDigit(context.Background(), "555-1212", "5"); len(resp.Speech()) != 1 {
		t.Fatalf("expected closing message, got %+v", resp.Elements)
	}
}

func TestOnSurveyAnswered(t *testing.T) {
	s := &Surveys{Config: testRouting}
	gd, ok := s.OnSurveyAnswered().GetDigits()
	if !ok || gd.ValidDigits != "12345" || gd.Action != "https://voice.example.com/surveyResult" {
		t.Fatalf("unexpected prompt %+v", gd)
	}
}

func TestPlaceSurveyCall(t *testing.T) {
	p := &stubPlacer{status: 201, raw: []byte(`{"api_id":"api-1"}`)}
	s := &Surveys{Config: testRouting, Caller: p}

	placed, err := s.PlaceSurveyCall(context.Background(), "15557654321")
	if err != nil {
		t.Fatal(err)
	}
	if placed.Status != 201 || string(placed.Raw) != `{"api_id":"api-1"}` || placed.Response.APIID != "api-1" {
		t.Errorf("unexpected placed call %+v", placed)
	}
	want := plivo.CallRequest{
		From:      "18005550100",
		To:        "15557654321",
		AnswerURL: "https://voice.example.com/surveyCallAnswered",
		HangupURL: "https://voice.example.com/hangup/",
	}
	if p.req != want {
		t.Errorf("request = %+v", p.req)
	}
}

func TestPlaceSurveyCallFailures(t *testing.T) {
	s := &Surveys{Config: testRouting, Caller: &stubPlacer{}}
	if _, err := s.PlaceSurveyCall(context.Background(), " "); !errors.Is(err, domain.ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}

	apiErr := &plivo.APIError{Status: 400, Message: "invalid destination"}
	s.Caller = &stubPlacer{err: apiErr}
	_, err := s.PlaceSurveyCall(context.Background(), "bogus")
	var got *plivo.APIError
	if !errors.As(err, &got) || got.Status != 400 {
		t.Errorf("expected wrapped APIError, got %v", err)
	}
}

func TestPlaceSurveyCallThrottled(t *testing.T) {
	p := &stubPlacer{status: 201}
	s := &Surveys{Config: testRouting, Caller: p, Limiter: rate.NewLimiter(rate.Limit(0.001), 1)}

	if _, err := s.PlaceSurveyCall(context.Background(), "15557654321"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlaceSurveyCall(context.Background(), "15557654321"); !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("throttled call must not reach the provider, got %d calls", p.calls)
	}
}
