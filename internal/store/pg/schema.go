package pg

import "context"

// Every non-key column after CREATE TABLE is repeated as ADD COLUMN IF NOT EXISTS so
// older deployments pick up new columns without a migration tool.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id BIGSERIAL PRIMARY KEY,
		phone_number TEXT NOT NULL,
		appointment_time TIMESTAMPTZ NOT NULL,
		handyman_phone TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE appointments ADD COLUMN IF NOT EXISTS handyman_phone TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE appointments ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	`ALTER TABLE appointments ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	`CREATE INDEX IF NOT EXISTS appointments_phone_time_idx ON appointments (phone_number, appointment_time)`,

	`CREATE TABLE IF NOT EXISTS call_records (
		id BIGSERIAL PRIMARY KEY,
		uuid TEXT,
		start_time TEXT,
		from_number TEXT,
		to_number TEXT,
		direction TEXT,
		duration TEXT,
		cost TEXT,
		hangup_cause TEXT,
		hangup_source TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS start_time TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS from_number TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS to_number TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS direction TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS duration TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS cost TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS hangup_cause TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS hangup_source TEXT`,
	`ALTER TABLE call_records ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	`CREATE UNIQUE INDEX IF NOT EXISTS call_records_uuid_key ON call_records (uuid)`,

	`CREATE TABLE IF NOT EXISTS survey_results (
		id TEXT PRIMARY KEY,
		customer_phone TEXT,
		rating TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE survey_results ADD COLUMN IF NOT EXISTS customer_phone TEXT`,
	`ALTER TABLE survey_results ADD COLUMN IF NOT EXISTS rating TEXT`,
	`ALTER TABLE survey_results ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
}

func (s *Store) Reconcile(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
