package store

import (
	"context"
	"time"

	"handyvoice/internal/domain"
)

// Store is the persistence surface shared by the postgres and sqlite backends.
type Store interface {
	// FindAppointment returns the first appointment for phone with a time in
	// [from, to], in insertion order.
	FindAppointment(ctx context.Context, phone string, from, to time.Time) (domain.Appointment, bool, error)
	// SeedAppointment finds or creates the appointment for appt.PhoneNumber and
	// moves its time to appt.AppointmentTime. An existing handyman is kept.
	SeedAppointment(ctx context.Context, appt domain.Appointment) error

	InsertCallRecord(ctx context.Context, rec domain.CallRecord) (bool, error)
	InsertSurveyResult(ctx context.Context, res domain.SurveyResult) (bool, error)

	// Reconcile creates missing tables and columns. It never drops anything.
	Reconcile(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
