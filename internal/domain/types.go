package domain

import (
	"errors"
	"time"
)

// Appointment is a scheduled handyman visit for a customer phone number.
type Appointment struct {
	PhoneNumber     string    `json:"phoneNumber"`
	AppointmentTime time.Time `json:"appointmentTime"`
	HandymanPhone   string    `json:"handymanPhone"`
}

// CallRecord is one completed call leg as reported by the provider's hangup callback.
// Values are kept exactly as the provider sent them.
type CallRecord struct {
	UUID         string `json:"uuid"`
	StartTime    string `json:"startTime"`
	From         string `json:"from"`
	To           string `json:"to"`
	Direction    string `json:"direction,omitempty"`
	Duration     string `json:"duration"`
	Cost         string `json:"cost"`
	HangupCause  string `json:"hangupCause"`
	HangupSource string `json:"hangupSource"`
}

// SurveyResult is a single keypad rating collected by a survey call.
type SurveyResult struct {
	ID            string `json:"id"`
	CustomerPhone string `json:"customerPhone"`
	Rating        string `json:"rating"`
}

type Tone string

const (
	ToneGlad  Tone = "glad"
	ToneSorry Tone = "sorry"
)

type Route string

const (
	RouteAppointmentMenu Route = "appointment_menu"
	RouteCustomerService Route = "customer_service"
	RouteHandyman        Route = "handyman"
)

var ErrMissingFields = errors.New("missing required fields")
