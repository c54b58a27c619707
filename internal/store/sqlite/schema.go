package sqlite

import (
	"context"
	"fmt"
)

type table struct {
	name    string
	create  string
	columns []column
	indexes []string
}

// column is added with ALTER TABLE when an older file lacks it.
type column struct {
	name string
	decl string
}

var tables = []table{
	{
		name: "appointments",
		create: `CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone_number TEXT NOT NULL,
			appointment_time INTEGER NOT NULL
		)`,
		columns: []column{
			{"handyman_phone", "TEXT NOT NULL DEFAULT ''"},
			{"created_at", "TIMESTAMP"},
			{"updated_at", "TIMESTAMP"},
		},
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_appointments_phone_time ON appointments(phone_number, appointment_time)`,
		},
	},
	{
		name: "call_records",
		create: `CREATE TABLE IF NOT EXISTS call_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT
		)`,
		columns: []column{
			{"start_time", "TEXT"},
			{"from_number", "TEXT"},
			{"to_number", "TEXT"},
			{"direction", "TEXT"},
			{"duration", "TEXT"},
			{"cost", "TEXT"},
			{"hangup_cause", "TEXT"},
			{"hangup_source", "TEXT"},
			{"created_at", "TIMESTAMP"},
		},
		indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_call_records_uuid ON call_records(uuid)`,
		},
	},
	{
		name: "survey_results",
		create: `CREATE TABLE IF NOT EXISTS survey_results (
			id TEXT PRIMARY KEY
		)`,
		columns: []column{
			{"customer_phone", "TEXT"},
			{"rating", "TEXT"},
			{"created_at", "TIMESTAMP"},
		},
	},
}

// Reconcile brings the file up to the current schema: missing tables, columns
// and indexes are created, nothing is dropped or altered in place.
func (s *Store) Reconcile(ctx context.Context) error {
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t.create); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		have, err := s.columns(ctx, t.name)
		if err != nil {
			return err
		}
		for _, c := range t.columns {
			if have[c.name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.name, c.name, c.decl)
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add %s.%s: %w", t.name, c.name, err)
			}
		}
		for _, idx := range t.indexes {
			if _, err := s.db.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("index %s: %w", t.name, err)
			}
		}
	}
	return nil
}

func (s *Store) columns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}
