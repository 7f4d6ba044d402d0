package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id      TEXT PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	full_address  TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	rating        REAL NOT NULL DEFAULT 0,
	reviews_count INTEGER NOT NULL DEFAULT 0,
	maps_link     TEXT NOT NULL DEFAULT '',
	query_used    TEXT NOT NULL DEFAULT '',
	pulled_at     DATETIME NOT NULL,
	run_date      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contacts (
	id                TEXT PRIMARY KEY,
	place_id          TEXT NOT NULL,
	person_id         TEXT NOT NULL DEFAULT '',
	business_name     TEXT NOT NULL DEFAULT '',
	enrichment_source TEXT NOT NULL,
	run_date          TEXT NOT NULL,
	status            TEXT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	seniority         TEXT NOT NULL DEFAULT '',
	employee_count    INTEGER,
	has_email         BOOLEAN NOT NULL DEFAULT 0,
	email             TEXT NOT NULL DEFAULT '',
	email_status      TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	company_name      TEXT NOT NULL DEFAULT '',
	company_industry  TEXT NOT NULL DEFAULT '',
	company_website   TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_logs (
	run_id      TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	run_date    TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	summary     TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_place_id ON contacts(place_id);
CREATE INDEX IF NOT EXISTS idx_run_logs_kind_started ON run_logs(kind, started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReadLeads returns every lead in insertion order.
func (s *SQLiteStore) ReadLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(leadColumns, ", ")+` FROM leads ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: read leads iterate")
}

func (s *SQLiteStore) ReadKnownLeadIDs(ctx context.Context) (model.IDSet, error) {
	return s.readIDs(ctx, `SELECT place_id FROM leads`, "read lead ids")
}

// AppendLeads inserts leads in one transaction. A lead whose place id is
// already stored is skipped.
func (s *SQLiteStore) AppendLeads(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	query := `INSERT OR IGNORE INTO leads (` + strings.Join(leadColumns, ", ") + `) VALUES (` + placeholders(len(leadColumns)) + `)`
	return s.inTx(ctx, "append leads", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close() //nolint:errcheck
		for _, l := range leads {
			if _, err := stmt.ExecContext(ctx, leadValues(l)...); err != nil {
				return eris.Wrapf(err, "lead %s", l.ID)
			}
		}
		return nil
	})
}

// ReadContacts returns every contact row in insertion order.
func (s *SQLiteStore) ReadContacts(ctx context.Context) ([]model.ContactRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(contactColumns, ", ")+` FROM contacts ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read contacts")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ContactRow
	for rows.Next() {
		r, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: read contacts iterate")
}

func (s *SQLiteStore) ReadEnrichedIDs(ctx context.Context) (model.IDSet, error) {
	return s.readIDs(ctx,
		`SELECT DISTINCT place_id FROM contacts WHERE status <> '`+string(model.ContactPartial)+`'`,
		"read enriched ids")
}

func (s *SQLiteStore) ReadRevealedKeys(ctx context.Context) (model.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT place_id, person_id FROM contacts WHERE person_id <> ''`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read revealed keys")
	}
	defer rows.Close() //nolint:errcheck

	keys := make(model.IDSet)
	for rows.Next() {
		var placeID, personID string
		if err := rows.Scan(&placeID, &personID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revealed key")
		}
		keys.Add(model.ContactKey(placeID, personID))
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: read revealed keys iterate")
}

// AppendContacts writes one company's rows in a single transaction, so a
// failed write leaves none of them behind.
func (s *SQLiteStore) AppendContacts(ctx context.Context, rows []model.ContactRow) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO contacts (` + strings.Join(contactColumns, ", ") + `) VALUES (` + placeholders(len(contactColumns)) + `)`
	now := s.now()
	return s.inTx(ctx, "append contacts", func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, query, contactValues(uuid.NewString(), r, now)...); err != nil {
				return eris.Wrapf(err, "contact %s", r.Key())
			}
		}
		return nil
	})
}

func (s *SQLiteStore) AppendIngestLog(ctx context.Context, sum *model.IngestSummary) error {
	rl, err := IngestRunLog(sum)
	if err != nil {
		return err
	}
	return s.appendRunLog(ctx, rl)
}

func (s *SQLiteStore) AppendEnrichmentLog(ctx context.Context, sum *model.EnrichmentSummary) error {
	rl, err := EnrichmentRunLog(sum)
	if err != nil {
		return err
	}
	return s.appendRunLog(ctx, rl)
}

func (s *SQLiteStore) appendRunLog(ctx context.Context, rl model.RunLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, kind, run_date, status, started_at, summary, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rl.RunID, string(rl.Kind), rl.RunDate, string(rl.Status), rl.StartedAt.UTC(), string(rl.Summary), s.now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: append %s log %s", rl.Kind, rl.RunID)
}

// ListRunLogs returns run logs, newest first.
func (s *SQLiteStore) ListRunLogs(ctx context.Context, filter RunLogFilter) ([]model.RunLog, error) {
	query := `SELECT kind, run_id, run_date, status, started_at, summary FROM run_logs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list run logs")
	}
	defer rows.Close() //nolint:errcheck

	var logs []model.RunLog
	for rows.Next() {
		var (
			rl           model.RunLog
			kind, status string
			summary      string
		)
		if err := rows.Scan(&kind, &rl.RunID, &rl.RunDate, &status, &rl.StartedAt, &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run log")
		}
		rl.Kind = model.RunKind(kind)
		rl.Status = model.RunStatus(status)
		rl.Summary = []byte(summary)
		logs = append(logs, rl)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list run logs iterate")
}

// helpers

func (s *SQLiteStore) readIDs(ctx context.Context, query, op string) (model.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	ids := make(model.IDSet)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s", op)
		}
		ids.Add(id)
	}
	return ids, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", op)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrapf(err, "sqlite: %s", op)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", op)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
