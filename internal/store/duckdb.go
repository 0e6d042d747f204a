package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/infraquery/infraquery/internal/schema"
)

// DuckDB is the local analytical backend: a single-file columnar store the
// ingestion job refreshes daily.
type DuckDB struct {
	db     *sql.DB
	limits Limits
}

func NewDuckDB(path string, limits Limits) (*DuckDB, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("duckdb file: %w (run the ingestion job first)", err)
		}
	}
	db, err := sql.Open("duckdb", duckdbDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	return &DuckDB{db: db, limits: limits}, nil
}

// duckdbDSN opens the file read-only: this process only queries, the
// ingestion job owns writes. In-memory databases cannot be read-only.
func duckdbDSN(path string) string {
	if path == "" {
		return ""
	}
	return path + "?access_mode=read_only"
}

func (d *DuckDB) Query(ctx context.Context, sqlText string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.limits.Timeout)
	defer cancel()

	started := time.Now()
	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, mapExecErr(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows, d.limits.MaxRows, started)
	if err != nil {
		return nil, mapExecErr(ctx, err)
	}
	return result, nil
}

func (d *DuckDB) TableColumns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_name = ? ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

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

func (d *DuckDB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DuckDB) Close() error {
	return d.db.Close()
}
