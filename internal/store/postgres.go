package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	seq           BIGSERIAL,
	place_id      TEXT PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	full_address  TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	rating        DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews_count INTEGER NOT NULL DEFAULT 0,
	maps_link     TEXT NOT NULL DEFAULT '',
	query_used    TEXT NOT NULL DEFAULT '',
	pulled_at     TIMESTAMPTZ NOT NULL,
	run_date      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contacts (
	seq               BIGSERIAL,
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id          TEXT NOT NULL,
	person_id         TEXT NOT NULL DEFAULT '',
	business_name     TEXT NOT NULL DEFAULT '',
	enrichment_source TEXT NOT NULL,
	run_date          TEXT NOT NULL,
	status            TEXT NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	seniority         TEXT NOT NULL DEFAULT '',
	employee_count    BIGINT,
	has_email         BOOLEAN NOT NULL DEFAULT false,
	email             TEXT NOT NULL DEFAULT '',
	email_status      TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	company_name      TEXT NOT NULL DEFAULT '',
	company_industry  TEXT NOT NULL DEFAULT '',
	company_website   TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_logs (
	run_id     TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	run_date   TEXT NOT NULL,
	status     TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	summary    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_seq ON leads(seq);
CREATE INDEX IF NOT EXISTS idx_contacts_seq ON contacts(seq);
CREATE INDEX IF NOT EXISTS idx_contacts_place_id ON contacts(place_id);
CREATE INDEX IF NOT EXISTS idx_run_logs_kind_started ON run_logs(kind, started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReadLeads returns every lead in insertion order.
func (s *PostgresStore) ReadLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+strings.Join(leadColumns, ", ")+` FROM leads ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: read leads iterate")
}

func (s *PostgresStore) ReadKnownLeadIDs(ctx context.Context) (model.IDSet, error) {
	return s.readIDs(ctx, `SELECT place_id FROM leads`, "read lead ids")
}

// AppendLeads bulk-loads leads, skipping place ids already stored.
func (s *PostgresStore) AppendLeads(ctx context.Context, leads []model.Lead) error {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, leadValues(l))
	}
	_, err := db.InsertIgnore(ctx, s.pool, db.InsertConfig{
		Table:        "leads",
		Columns:      leadColumns,
		ConflictKeys: []string{"place_id"},
	}, rows)
	return eris.Wrap(err, "postgres: append leads")
}

// ReadContacts returns every contact row in insertion order.
func (s *PostgresStore) ReadContacts(ctx context.Context) ([]model.ContactRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+strings.Join(contactColumns, ", ")+` FROM contacts ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read contacts")
	}
	defer rows.Close()

	var out []model.ContactRow
	for rows.Next() {
		r, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: read contacts iterate")
}

func (s *PostgresStore) ReadEnrichedIDs(ctx context.Context) (model.IDSet, error) {
	return s.readIDs(ctx, `SELECT DISTINCT place_id FROM contacts WHERE status <> $1`,
		"read enriched ids", string(model.ContactPartial))
}

func (s *PostgresStore) ReadRevealedKeys(ctx context.Context) (model.IDSet, error) {
	rows, err := s.pool.Query(ctx, `SELECT place_id, person_id FROM contacts WHERE person_id <> ''`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read revealed keys")
	}
	defer rows.Close()

	keys := make(model.IDSet)
	for rows.Next() {
		var placeID, personID string
		if err := rows.Scan(&placeID, &personID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revealed key")
		}
		keys.Add(model.ContactKey(placeID, personID))
	}
	return keys, eris.Wrap(rows.Err(), "postgres: read revealed keys iterate")
}

// AppendContacts COPYs one company's rows. COPY is atomic, so a failed
// write leaves none of them behind.
func (s *PostgresStore) AppendContacts(ctx context.Context, rows []model.ContactRow) error {
	now := s.now()
	vals := make([][]any, 0, len(rows))
	for _, r := range rows {
		vals = append(vals, contactValues(uuid.NewString(), r, now))
	}
	_, err := db.CopyFrom(ctx, s.pool, "contacts", contactColumns, vals)
	return eris.Wrap(err, "postgres: append contacts")
}

func (s *PostgresStore) AppendIngestLog(ctx context.Context, sum *model.IngestSummary) error {
	rl, err := IngestRunLog(sum)
	if err != nil {
		return err
	}
	return s.appendRunLog(ctx, rl)
}

func (s *PostgresStore) AppendEnrichmentLog(ctx context.Context, sum *model.EnrichmentSummary) error {
	rl, err := EnrichmentRunLog(sum)
	if err != nil {
		return err
	}
	return s.appendRunLog(ctx, rl)
}

func (s *PostgresStore) appendRunLog(ctx context.Context, rl model.RunLog) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_logs (run_id, kind, run_date, status, started_at, summary) VALUES ($1, $2, $3, $4, $5, $6)`,
		rl.RunID, string(rl.Kind), rl.RunDate, string(rl.Status), rl.StartedAt.UTC(), rl.Summary,
	)
	return eris.Wrapf(err, "postgres: append %s log %s", rl.Kind, rl.RunID)
}

// ListRunLogs returns run logs, newest first.
func (s *PostgresStore) ListRunLogs(ctx context.Context, filter RunLogFilter) ([]model.RunLog, error) {
	query := `SELECT kind, run_id, run_date, status, started_at, summary FROM run_logs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list run logs")
	}
	defer rows.Close()

	var logs []model.RunLog
	for rows.Next() {
		var (
			rl           model.RunLog
			kind, status string
		)
		if err := rows.Scan(&kind, &rl.RunID, &rl.RunDate, &status, &rl.StartedAt, &rl.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run log")
		}
		rl.Kind = model.RunKind(kind)
		rl.Status = model.RunStatus(status)
		logs = append(logs, rl)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list run logs iterate")
}

func (s *PostgresStore) readIDs(ctx context.Context, query, op string, args ...any) (model.IDSet, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	return model.NewIDSet(ids...), nil
}
