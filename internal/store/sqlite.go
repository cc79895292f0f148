package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/permit-leads/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	error_type TEXT,
	message    TEXT,
	summary    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS permits (
	id                 TEXT PRIMARY KEY,
	batch_id           TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	permit_number      TEXT NOT NULL,
	permit_type        TEXT NOT NULL,
	status             TEXT NOT NULL,
	application_date   TEXT NOT NULL,
	construction_value REAL NOT NULL,
	value_range        TEXT NOT NULL,
	work_type          TEXT NOT NULL,
	sub_work_type      TEXT NOT NULL,
	description        TEXT NOT NULL,
	address            TEXT NOT NULL,
	total_units        INTEGER,
	units_created      INTEGER,
	lead_priority      TEXT NOT NULL,
	contractor_type    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_permits_batch_id ON permits(batch_id);
CREATE INDEX IF NOT EXISTS idx_permits_application_date ON permits(application_date);
CREATE INDEX IF NOT EXISTS idx_permits_lead_priority ON permits(lead_priority);
CREATE INDEX IF NOT EXISTS idx_permits_contractor_type ON permits(contractor_type);
CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceBatch(ctx context.Context, result *model.TransformResult) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal summary")
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal metadata")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM permits`); err != nil {
		return "", eris.Wrap(err, "sqlite: clear permits")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches`); err != nil {
		return "", eris.Wrap(err, "sqlite: clear batches")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, status, error_type, message, summary, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(result.Status), string(result.ErrorType), result.Message,
		string(summaryJSON), string(metadataJSON), now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert batch")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO permits (id, batch_id, permit_number, permit_type, status,
		  application_date, construction_value, value_range, work_type, sub_work_type,
		  description, address, total_units, units_created, lead_priority, contractor_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: prepare insert permit")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range result.Permits {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), id, p.PermitNumber, p.PermitType, p.Status,
			p.ApplicationDate.String(), p.ConstructionValue, p.ValueRange,
			p.WorkType, p.SubWorkType, p.Description, p.Address,
			nullableInt(p.TotalUnits), nullableInt(p.UnitsCreated),
			string(p.LeadPriority), string(p.ContractorType),
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: insert permit %s", p.PermitNumber)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit")
	}

	return id, nil
}

func (s *SQLiteStore) LatestBatch(ctx context.Context) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, error_type, message, summary, metadata, created_at
		 FROM batches ORDER BY created_at DESC LIMIT 1`,
	)

	var b Batch
	var errType, message sql.NullString
	var summaryJSON, metadataJSON string
	err := row.Scan(&b.ID, &b.Status, &errType, &message, &summaryJSON, &metadataJSON, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get latest batch")
	}

	b.ErrorType = model.ErrorType(errType.String)
	b.Message = message.String
	if err := json.Unmarshal([]byte(summaryJSON), &b.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	if err := json.Unmarshal([]byte(metadataJSON), &b.Metadata); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
	}
	return &b, nil
}

func (s *SQLiteStore) ListPermits(ctx context.Context, filter PermitFilter) ([]model.Permit, error) {
	query := `SELECT permit_number, permit_type, status, application_date,
	  construction_value, value_range, work_type, sub_work_type, description,
	  address, total_units, units_created, lead_priority, contractor_type
	 FROM permits WHERE 1=1`
	where, args := sqliteFilterClause(filter)
	query += where
	query += ` ORDER BY application_date DESC, permit_number ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list permits")
	}
	defer rows.Close() //nolint:errcheck

	permits := []model.Permit{}
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		permits = append(permits, *p)
	}
	return permits, eris.Wrap(rows.Err(), "sqlite: list permits iterate")
}

func (s *SQLiteStore) CountPermits(ctx context.Context, filter PermitFilter) (int, error) {
	query := `SELECT COUNT(*) FROM permits WHERE 1=1`
	where, args := sqliteFilterClause(filter)
	query += where

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count permits")
	}
	return n, nil
}

// sqliteFilterClause renders the filter as AND clauses with ? placeholders.
// Dates compare lexicographically because application_date is stored as
// YYYY-MM-DD text.
func sqliteFilterClause(filter PermitFilter) (string, []any) {
	var clause string
	var args []any

	if filter.Priority != "" {
		clause += ` AND lead_priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.ContractorType != "" {
		clause += ` AND contractor_type = ?`
		args = append(args, string(filter.ContractorType))
	}
	if filter.Status != "" {
		clause += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.WorkType != "" {
		clause += ` AND work_type = ?`
		args = append(args, filter.WorkType)
	}
	if filter.MinValue != nil {
		clause += ` AND construction_value >= ?`
		args = append(args, *filter.MinValue)
	}
	if filter.MaxValue != nil {
		clause += ` AND construction_value <= ?`
		args = append(args, *filter.MaxValue)
	}
	if filter.From != nil {
		clause += ` AND application_date >= ?`
		args = append(args, filter.From.Format(model.DateLayout))
	}
	if filter.To != nil {
		clause += ` AND application_date <= ?`
		args = append(args, filter.To.Format(model.DateLayout))
	}

	return clause, args
}

// helpers

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPermit(row scannable) (*model.Permit, error) {
	var p model.Permit
	var dateText string
	var totalUnits, unitsCreated sql.NullInt64

	err := row.Scan(&p.PermitNumber, &p.PermitType, &p.Status, &dateText,
		&p.ConstructionValue, &p.ValueRange, &p.WorkType, &p.SubWorkType,
		&p.Description, &p.Address, &totalUnits, &unitsCreated,
		&p.LeadPriority, &p.ContractorType)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan permit")
	}

	parsed, err := time.Parse(model.DateLayout, dateText)
	if err != nil {
		return nil, eris.Wrapf(err, "store: parse application date %q", dateText)
	}
	p.ApplicationDate = model.NewDate(parsed)

	if totalUnits.Valid {
		n := int(totalUnits.Int64)
		p.TotalUnits = &n
	}
	if unitsCreated.Valid {
		n := int(unitsCreated.Int64)
		p.UnitsCreated = &n
	}
	return &p, nil
}
