package service

import (
	"context"
	"net/url"
	"strings"

	"handyvoice/internal/domain"
	"handyvoice/internal/observability"
	"handyvoice/internal/providers/plivo"
)

const (
	appointmentGreeting = "Hi, thanks for calling! Your scheduled appointment is today. " +
		"To speak with your handyman, press 1. Otherwise press 2 to be connected to Customer Service."
	customerServiceHold = "Please hold while we connect you to customer service."
	connectHold         = "Please hold while we connect you."

	menuTimeoutSeconds = 5
	handymanDigit      = "1"
)

// RoutingConfig is the deployment-time routing setup shared by every handler.
type RoutingConfig struct {
	CustomerServiceNumber string
	BaseURL               string
}

// URL joins path onto the public callback base.
func (c RoutingConfig) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// IVRAction is the callback for the appointment menu. The handyman number
// travels in the path so the next request needs no session state.
func (c RoutingConfig) IVRAction(handymanPhone string) string {
	return c.URL("/appointmentIVR/" + url.PathEscape(handymanPhone))
}

type AppointmentLookup interface {
	HasAppointmentToday(ctx context.Context, phone string) (handymanPhone string, found bool, err error)
}

// Router turns inbound-call and IVR keypress callbacks into call-control documents.
type Router struct {
	Config RoutingConfig
	Lookup AppointmentLookup
}

// RouteInboundCall offers the appointment menu to callers with a visit today
// and sends everyone else straight to customer service.
func (r *Router) RouteInboundCall(ctx context.Context, caller string) (*plivo.Response, error) {
	handyman, found, err := r.Lookup.HasAppointmentToday(ctx, caller)
	if err != nil {
		return nil, err
	}

	resp := plivo.NewResponse()
	if !found {
		observability.InboundCalls.WithLabelValues(string(domain.RouteCustomerService)).Inc()
		return resp.AddSpeak(customerServiceHold).AddDial(r.Config.CustomerServiceNumber), nil
	}

	observability.InboundCalls.WithLabelValues(string(domain.RouteAppointmentMenu)).Inc()
	return resp.AddGetDigits(plivo.GetDigitsOptions{
		Action:    r.Config.IVRAction(handyman),
		Timeout:   menuTimeoutSeconds,
		NumDigits: 1,
	}, appointmentGreeting), nil
}

// HandleDigit connects "1" to the handyman; anything else, including a
// timeout with no digit, goes to customer service.
func (r *Router) HandleDigit(digit, handymanPhone string) *plivo.Response {
	target, route := r.Config.CustomerServiceNumber, domain.RouteCustomerService
	if strings.TrimSpace(digit) == handymanDigit {
		target, route = handymanPhone, domain.RouteHandyman
	}
	observability.IVRSelections.WithLabelValues(string(route)).Inc()
	return plivo.NewResponse().AddSpeak(connectHold).AddDial(target)
}
