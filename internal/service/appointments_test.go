package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"handyvoice/internal/domain"
	"handyvoice/internal/store/sqlite"
)

type windowFinder struct {
	phone    string
	from, to time.Time
	appt     domain.Appointment
	found    bool
	err      error
}

func (f *windowFinder) FindAppointment(_ context.Context, phone string, from, to time.Time) (domain.Appointment, bool, error) {
	f.phone, f.from, f.to = phone, from, to
	return f.appt, f.found, f.err
}

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("test", -5*3600)
	start, end := DayWindow(time.Date(2024, 5, 1, 15, 4, 5, 0, loc))

	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2024, 5, 1, 23, 59, 59, 999_000_000, loc); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
	if start.Location() != loc || end.Location() != loc {
		t.Error("window must stay in the clock's location")
	}
}

func TestHasAppointmentTodayUsesLocalDay(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	f := &windowFinder{found: true, appt: domain.Appointment{HandymanPhone: "16808001249"}}
	a := &Appointments{Store: f, Now: func() time.Time { return now }}

	handyman, found, err := a.HasAppointmentToday(context.Background(), "+1 555 123 0000")
	if err != nil || !found || handyman != "16808001249" {
		t.Fatalf("got (%q, %v, %v)", handyman, found, err)
	}
	if f.phone != "+1 555 123 0000" {
		t.Errorf("phone must reach the store unchanged, got %q", f.phone)
	}
	start, end := DayWindow(now)
	if !f.from.Equal(start) || !f.to.Equal(end) {
		t.Errorf("window = [%v, %v]", f.from, f.to)
	}
}

func TestHasAppointmentTodayAbsence(t *testing.T) {
	a := &Appointments{Store: &windowFinder{}}
	handyman, found, err := a.HasAppointmentToday(context.Background(), "15551230000")
	if err != nil || found || handyman != "" {
		t.Fatalf("expected absence, got (%q, %v, %v)", handyman, found, err)
	}
}

func TestHasAppointmentTodayPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	a := &Appointments{Store: &windowFinder{err: boom}}
	if _, _, err := a.HasAppointmentToday(context.Background(), "15551230000"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestHasAppointmentTodayMatchesStoredNumberExactly(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "voice.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	now := time.Now()
	if err := st.SeedAppointment(ctx, domain.Appointment{
		PhoneNumber:     "1 415 555 1212",
		AppointmentTime: now,
		HandymanPhone:   "16808001249",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := &Appointments{Store: st, Now: func() time.Time { return now }}
	handyman, found, err := a.HasAppointmentToday(ctx, "1 415 555 1212")
	if err != nil || !found || handyman != "16808001249" {
		t.Fatalf("lookup with spaces: got (%q, %v, %v)", handyman, found, err)
	}

	if _, found, _ := a.HasAppointmentToday(ctx, "14155551212"); found {
		t.Error("a differently formatted number must not match")
	}
}
