package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/db"
	"github.com/sells-group/permit-leads/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// permitColumns is the COPY column list for bulk-loading a batch.
var permitColumns = []string{
	"id", "batch_id", "permit_number", "permit_type", "status",
	"application_date", "construction_value", "value_range", "work_type",
	"sub_work_type", "description", "address", "total_units", "units_created",
	"lead_priority", "contractor_type",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	error_type TEXT,
	message    TEXT,
	summary    JSONB NOT NULL,
	metadata   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS permits (
	id                 TEXT PRIMARY KEY,
	batch_id           TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	permit_number      TEXT NOT NULL,
	permit_type        TEXT NOT NULL,
	status             TEXT NOT NULL,
	application_date   DATE NOT NULL,
	construction_value DOUBLE PRECISION NOT NULL,
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) ReplaceBatch(ctx context.Context, result *model.TransformResult) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal summary")
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal metadata")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM permits`); err != nil {
		return "", eris.Wrap(err, "postgres: clear permits")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM batches`); err != nil {
		return "", eris.Wrap(err, "postgres: clear batches")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO batches (id, status, error_type, message, summary, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(result.Status), string(result.ErrorType), result.Message,
		summaryJSON, metadataJSON, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert batch")
	}

	rows := make([][]any, 0, len(result.Permits))
	for _, p := range result.Permits {
		rows = append(rows, []any{
			uuid.New().String(), id, p.PermitNumber, p.PermitType, p.Status,
			p.ApplicationDate.Time, p.ConstructionValue, p.ValueRange,
			p.WorkType, p.SubWorkType, p.Description, p.Address,
			nullableInt(p.TotalUnits), nullableInt(p.UnitsCreated),
			string(p.LeadPriority), string(p.ContractorType),
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "permits", permitColumns, rows); err != nil {
		return "", eris.Wrap(err, "postgres: copy permits")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit")
	}

	return id, nil
}

func (s *PostgresStore) LatestBatch(ctx context.Context) (*Batch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, error_type, message, summary, metadata, created_at
		 FROM batches ORDER BY created_at DESC LIMIT 1`,
	)

	var b Batch
	var errType, message *string
	var summaryJSON, metadataJSON []byte
	err := row.Scan(&b.ID, &b.Status, &errType, &message, &summaryJSON, &metadataJSON, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get latest batch")
	}

	if errType != nil {
		b.ErrorType = model.ErrorType(*errType)
	}
	if message != nil {
		b.Message = *message
	}
	if err := json.Unmarshal(summaryJSON, &b.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	if err := json.Unmarshal(metadataJSON, &b.Metadata); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal metadata")
	}
	return &b, nil
}

func (s *PostgresStore) ListPermits(ctx context.Context, filter PermitFilter) ([]model.Permit, error) {
	query := `SELECT permit_number, permit_type, status, application_date,
	  construction_value, value_range, work_type, sub_work_type, description,
	  address, total_units, units_created, lead_priority, contractor_type
	 FROM permits WHERE 1=1`
	where, args := postgresFilterClause(filter)
	query += where
	query += ` ORDER BY application_date DESC, permit_number ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list permits")
	}
	defer rows.Close()

	permits := []model.Permit{}
	for rows.Next() {
		p, err := scanPostgresPermit(rows)
		if err != nil {
			return nil, err
		}
		permits = append(permits, *p)
	}
	return permits, eris.Wrap(rows.Err(), "postgres: list permits iterate")
}

func (s *PostgresStore) CountPermits(ctx context.Context, filter PermitFilter) (int, error) {
	query := `SELECT COUNT(*) FROM permits WHERE 1=1`
	where, args := postgresFilterClause(filter)
	query += where

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count permits")
	}
	return n, nil
}

func postgresFilterClause(filter PermitFilter) (string, []any) {
	var clause string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		clause += fmt.Sprintf(` AND %s $%d`, cond, len(args))
	}

	if filter.Priority != "" {
		add("lead_priority =", string(filter.Priority))
	}
	if filter.ContractorType != "" {
		add("contractor_type =", string(filter.ContractorType))
	}
	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if filter.WorkType != "" {
		add("work_type =", filter.WorkType)
	}
	if filter.MinValue != nil {
		add("construction_value >=", *filter.MinValue)
	}
	if filter.MaxValue != nil {
		add("construction_value <=", *filter.MaxValue)
	}
	if filter.From != nil {
		add("application_date >=", *filter.From)
	}
	if filter.To != nil {
		add("application_date <=", *filter.To)
	}

	return clause, args
}

func scanPostgresPermit(rows pgx.Rows) (*model.Permit, error) {
	var p model.Permit
	var appDate time.Time
	var totalUnits, unitsCreated *int32

	err := rows.Scan(&p.PermitNumber, &p.PermitType, &p.Status, &appDate,
		&p.ConstructionValue, &p.ValueRange, &p.WorkType, &p.SubWorkType,
		&p.Description, &p.Address, &totalUnits, &unitsCreated,
		&p.LeadPriority, &p.ContractorType)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan permit")
	}

	p.ApplicationDate = model.NewDate(appDate)
	if totalUnits != nil {
		n := int(*totalUnits)
		p.TotalUnits = &n
	}
	if unitsCreated != nil {
		n := int(*unitsCreated)
		p.UnitsCreated = &n
	}
	return &p, nil
}
