package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCollectRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"UF", "total"}).
			AddRow("PA", int64(120)).
			AddRow("MT", int64(95)),
	)

	rows, err := db.Query("SELECT 1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	result, err := collectRows(rows, 500, time.Now())
	if err != nil {
		t.Fatalf("collectRows: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "UF" {
		t.Errorf("columns = %v, want [UF total]", result.Columns)
	}
	if result.RowCount() != 2 {
		t.Errorf("row count = %d, want 2", result.RowCount())
	}
	if result.Truncated {
		t.Error("result should not be truncated")
	}
	if result.Rows[0][0] != "PA" {
		t.Errorf("first cell = %v, want PA", result.Rows[0][0])
	}
}

func TestCollectRowsTruncates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mockRows := sqlmock.NewRows([]string{"n"})
	for i := 0; i < 10; i++ {
		mockRows.AddRow(int64(i))
	}
	mock.ExpectQuery("SELECT").WillReturnRows(mockRows)

	rows, err := db.Query("SELECT 1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	result, err := collectRows(rows, 3, time.Now())
	if err != nil {
		t.Fatalf("collectRows: %v", err)
	}
	if result.RowCount() != 3 {
		t.Errorf("row count = %d, want 3", result.RowCount())
	}
	if !result.Truncated {
		t.Error("result should report truncation")
	}
}

func TestCollectRowsNormalizesBytes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow([]byte("Empresa LTDA")),
	)

	rows, err := db.Query("SELECT 1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	result, err := collectRows(rows, 500, time.Now())
	if err != nil {
		t.Fatalf("collectRows: %v", err)
	}
	if got, ok := result.Rows[0][0].(string); !ok || got != "Empresa LTDA" {
		t.Errorf("cell = %#v, want string \"Empresa LTDA\"", result.Rows[0][0])
	}
}

func TestMapExecErr(t *testing.T) {
	deadlineCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-deadlineCtx.Done()

	if got := mapExecErr(deadlineCtx, errors.New("interrupted")); !errors.Is(got, ErrExecutionTimeout) {
		t.Errorf("deadline ctx: got %v, want ErrExecutionTimeout", got)
	}
	if got := mapExecErr(context.Background(), context.DeadlineExceeded); !errors.Is(got, ErrExecutionTimeout) {
		t.Errorf("deadline err: got %v, want ErrExecutionTimeout", got)
	}
	if got := mapExecErr(context.Background(), context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("canceled: got %v, want context.Canceled passthrough", got)
	}
	backendErr := errors.New("relation does not exist")
	got := mapExecErr(context.Background(), backendErr)
	if !errors.Is(got, ErrExecutionError) {
		t.Errorf("backend err: got %v, want ErrExecutionError", got)
	}
	if errors.Is(got, ErrExecutionTimeout) {
		t.Error("backend err must not read as timeout")
	}
}

func TestDuckDBDSNIsReadOnly(t *testing.T) {
	if got := duckdbDSN("data/ibama_infracao.db"); got != "data/ibama_infracao.db?access_mode=read_only" {
		t.Errorf("dsn = %q, want read_only access mode", got)
	}
	// In-memory databases cannot be opened read-only.
	if got := duckdbDSN(""); got != "" {
		t.Errorf("in-memory dsn = %q, want empty", got)
	}
}
