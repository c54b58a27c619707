package service

import (
	"context"
	"fmt"
	"time"

	"handyvoice/internal/domain"
)

type AppointmentFinder interface {
	// FindAppointment returns the first appointment for phone whose time lies
	// within [from, to], inclusive on both ends.
	FindAppointment(ctx context.Context, phone string, from, to time.Time) (domain.Appointment, bool, error)
}

// Appointments answers "does this caller have a visit today".
type Appointments struct {
	Store AppointmentFinder
	Now   func() time.Time
}

// HasAppointmentToday reports the handyman assigned to phone's appointment for
// the current local day. phone is matched exactly as the provider sent it.
// A missing appointment is not an error.
func (a *Appointments) HasAppointmentToday(ctx context.Context, phone string) (handymanPhone string, found bool, err error) {
	start, end := DayWindow(a.now())
	appt, found, err := a.Store.FindAppointment(ctx, phone, start, end)
	if err != nil {
		return "", false, fmt.Errorf("find appointment: %w", err)
	}
	if !found {
		return "", false, nil
	}
	return appt.HandymanPhone, true, nil
}

func (a *Appointments) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// DayWindow returns 00:00:00.000 and 23:59:59.999 of t's day in t's location.
func DayWindow(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end = time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
	return start, end
}
