package service

import (
	"context"
	"errors"
	"testing"
)

type stubLookup struct {
	handyman string
	found    bool
	err      error
}

func (s stubLookup) HasAppointmentToday(context.Context, string) (string, bool, error) {
	return s.handyman, s.found, s.err
}

var testRouting = RoutingConfig{CustomerServiceNumber: "18005550100", BaseURL: "https://voice.example.com/"}

func TestRoutingConfigURL(t *testing.T) {
	if got := testRouting.URL("/surveyResult"); got != "https://voice.example.com/surveyResult" {
		t.Errorf("URL = %q", got)
	}
	if got := testRouting.IVRAction("+1 680"); got != "https://voice.example.com/appointmentIVR/+1%20680" {
		t.Errorf("IVRAction = %q", got)
	}
}

func TestRouteInboundCall(t *testing.T) {
	r := &Router{Config: testRouting, Lookup: stubLookup{handyman: "16808001249", found: true}}
	resp, err := r.RouteInboundCall(context.Background(), "15551230000")
	if err != nil {
		t.Fatal(err)
	}
	gd, ok := resp.GetDigits()
	if !ok || gd.Action != "https://voice.example.com/appointmentIVR/16808001249" || gd.Timeout != "5" || gd.NumDigits != "1" {
		t.Fatalf("unexpected menu %+v", resp.Elements)
	}

	r.Lookup = stubLookup{}
	resp, err = r.RouteInboundCall(context.Background(), "19995550000")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.GetDigits(); ok {
		t.Fatal("no appointment must not collect digits")
	}
	if d := resp.Dials(); len(d) != 1 || d[0] != "18005550100" {
		t.Fatalf("expected customer service dial, got %v", d)
	}
}

func TestRouteInboundCallLookupError(t *testing.T) {
	r := &Router{Config: testRouting, Lookup: stubLookup{err: errors.New("db down")}}
	if resp, err := r.RouteInboundCall(context.Background(), "15551230000"); err == nil || resp != nil {
		t.Fatalf("expected error and no menu, got %v %v", resp, err)
	}
}

func TestHandleDigit(t *testing.T) {
	r := &Router{Config: testRouting}
	for digit, want := range map[string]string{
		"1":  "16808001249",
		" 1": "16808001249",
		"2":  "18005550100",
		"":   "18005550100",
		"11": "18005550100",
		"#":  "18005550100",
	} {
		if d := r.HandleDigit(digit, "16808001249").Dials(); len(d) != 1 || d[0] != want {
			t.Errorf("HandleDigit(%q) dials %v, want %s", digit, d, want)
		}
	}
}
