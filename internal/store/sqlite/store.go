package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"handyvoice/internal/domain"
)

// Store keeps appointments and call audit data in a local SQLite file.
// Appointment times are stored as unix milliseconds so range lookups compare numbers.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	// single writer; sqlite serializes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return s, nil
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *Store) FindAppointment(ctx context.Context, phone string, from, to time.Time) (domain.Appointment, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT phone_number, appointment_time, handyman_phone
		FROM appointments
		WHERE phone_number=? AND appointment_time BETWEEN ? AND ?
		ORDER BY id
		LIMIT 1
	`, phone, from.UnixMilli(), to.UnixMilli())
	var (
		a  domain.Appointment
		ms int64
	)
	if err := row.Scan(&a.PhoneNumber, &ms, &a.HandymanPhone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, false, nil
		}
		return domain.Appointment{}, false, err
	}
	a.AppointmentTime = time.UnixMilli(ms)
	return a, true, nil
}

func (s *Store) SeedAppointment(ctx context.Context, appt domain.Appointment) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET appointment_time=?, updated_at=?
		WHERE id = (SELECT id FROM appointments WHERE phone_number=? ORDER BY id LIMIT 1)
	`, appt.AppointmentTime.UnixMilli(), now, appt.PhoneNumber)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appointments (phone_number, appointment_time, handyman_phone, created_at, updated_at)
		VALUES (?,?,?,?,?)
	`, appt.PhoneNumber, appt.AppointmentTime.UnixMilli(), appt.HandymanPhone, now, now)
	return err
}

func (s *Store) InsertCallRecord(ctx context.Context, rec domain.CallRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO call_records (uuid, start_time, from_number, to_number, direction, duration, cost, hangup_cause, hangup_source, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (uuid) DO NOTHING
	`, nullIfEmpty(rec.UUID), rec.StartTime, rec.From, rec.To, nullIfEmpty(rec.Direction), rec.Duration, rec.Cost, rec.HangupCause, rec.HangupSource, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) InsertSurveyResult(ctx context.Context, res domain.SurveyResult) (bool, error) {
	r, err := s.db.ExecContext(ctx, `
		INSERT INTO survey_results (id, customer_phone, rating, created_at)
		VALUES (?,?,?,?)
		ON CONFLICT (id) DO NOTHING
	`, res.ID, res.CustomerPhone, res.Rating, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := r.RowsAffected()
	return n > 0, err
}

// CallRecordsByUUID and SurveyResult are read-back helpers for tests and
// operator tooling. They are not part of store.Store; the call-handling
// paths only ever write these records.
func (s *Store) CallRecordsByUUID(ctx context.Context, uuid string) ([]domain.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(uuid,''), start_time, from_number, to_number, COALESCE(direction,''),
		       duration, cost, hangup_cause, hangup_source
		FROM call_records WHERE uuid=? ORDER BY id
	`, uuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CallRecord
	for rows.Next() {
		var r domain.CallRecord
		if err := rows.Scan(&r.UUID, &r.StartTime, &r.From, &r.To, &r.Direction, &r.Duration, &r.Cost, &r.HangupCause, &r.HangupSource); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SurveyResult(ctx context.Context, id string) (domain.SurveyResult, bool, error) {
	var r domain.SurveyResult
	err := s.db.QueryRowContext(ctx, `SELECT id, customer_phone, rating FROM survey_results WHERE id=?`, id).
		Scan(&r.ID, &r.CustomerPhone, &r.Rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SurveyResult{}, false, nil
		}
		return domain.SurveyResult{}, false, err
	}
	return r, true, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() { _ = s.db.Close() }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
