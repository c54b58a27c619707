package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"handyvoice/internal/domain"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) FindAppointment(ctx context.Context, phone string, from, to time.Time) (domain.Appointment, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT phone_number, appointment_time, handyman_phone
		FROM appointments
		WHERE phone_number=$1 AND appointment_time BETWEEN $2 AND $3
		ORDER BY id
		LIMIT 1
	`, phone, from, to)
	var a domain.Appointment
	err := row.Scan(&a.PhoneNumber, &a.AppointmentTime, &a.HandymanPhone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Appointment{}, false, nil
		}
		return domain.Appointment{}, false, err
	}
	return a, true, nil
}

func (s *Store) SeedAppointment(ctx context.Context, appt domain.Appointment) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE appointments SET appointment_time=$2, updated_at=now()
		WHERE id = (SELECT id FROM appointments WHERE phone_number=$1 ORDER BY id LIMIT 1)
	`, appt.PhoneNumber, appt.AppointmentTime)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO appointments (phone_number, appointment_time, handyman_phone)
		VALUES ($1,$2,$3)
	`, appt.PhoneNumber, appt.AppointmentTime, appt.HandymanPhone)
	return err
}

func (s *Store) InsertCallRecord(ctx context.Context, rec domain.CallRecord) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		INSERT INTO call_records (uuid, start_time, from_number, to_number, direction, duration, cost, hangup_cause, hangup_source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (uuid) DO NOTHING
	`, nullIfEmpty(rec.UUID), rec.StartTime, rec.From, rec.To, nullIfEmpty(rec.Direction), rec.Duration, rec.Cost, rec.HangupCause, rec.HangupSource)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) InsertSurveyResult(ctx context.Context, res domain.SurveyResult) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		INSERT INTO survey_results (id, customer_phone, rating)
		VALUES ($1,$2,$3)
		ON CONFLICT (id) DO NOTHING
	`, res.ID, res.CustomerPhone, res.Rating)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// CallRecordsByUUID and SurveyResult are read-back helpers for tests and
// operator tooling. They are not part of store.Store; the call-handling
// paths only ever write these records.
func (s *Store) CallRecordsByUUID(ctx context.Context, uuid string) ([]domain.CallRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT COALESCE(uuid,''), start_time, from_number, to_number, COALESCE(direction,''),
		       duration, cost, hangup_cause, hangup_source
		FROM call_records WHERE uuid=$1 ORDER BY id
	`, uuid)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CallRecord, error) {
		var r domain.CallRecord
		err := row.Scan(&r.UUID, &r.StartTime, &r.From, &r.To, &r.Direction, &r.Duration, &r.Cost, &r.HangupCause, &r.HangupSource)
		return r, err
	})
}

func (s *Store) SurveyResult(ctx context.Context, id string) (domain.SurveyResult, bool, error) {
	var r domain.SurveyResult
	err := s.DB.QueryRow(ctx, `SELECT id, customer_phone, rating FROM survey_results WHERE id=$1`, id).
		Scan(&r.ID, &r.CustomerPhone, &r.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SurveyResult{}, false, nil
		}
		return domain.SurveyResult{}, false, err
	}
	return r, true, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.Ping(ctx) }

func (s *Store) Close() { s.DB.Close() }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
