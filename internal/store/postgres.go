package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infraquery/infraquery/internal/schema"
)

// Postgres is the hosted backend (Supabase or any Postgres holding the
// infraction table).
type Postgres struct {
	pool   *pgxpool.Pool
	limits Limits
}

func NewPostgres(ctx context.Context, dsn string, limits Limits) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, limits: limits}, nil
}

func (p *Postgres) Query(ctx context.Context, sqlText string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.limits.Timeout)
	defer cancel()

	started := time.Now()
	rows, err := p.pool.Query(ctx, sqlText)
	if err != nil {
		return nil, mapExecErr(ctx, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if p.limits.MaxRows > 0 && len(result.Rows) >= p.limits.MaxRows {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, mapExecErr(ctx, err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, mapExecErr(ctx, err)
	}

	result.Duration = time.Since(started)
	return result, nil
}

func (p *Postgres) TableColumns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %q: %w", table, err)
	}
	defer rows.Close()

	var infos []schema.ColumnInfo
	for rows.Next() {
		var info schema.ColumnInfo
		if err := rows.Scan(&info.Name, &info.Type); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
