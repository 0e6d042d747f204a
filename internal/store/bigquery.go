package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/infraquery/infraquery/internal/schema"
)

// BigQuery is the warehouse backend for deployments that already mirror the
// infraction table into GCP.
type BigQuery struct {
	client  *bigquery.Client
	dataset string
	limits  Limits
}

func NewBigQuery(ctx context.Context, projectID, credentialsFile, dataset string, limits Limits) (*BigQuery, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset, limits: limits}, nil
}

func (b *BigQuery) Query(ctx context.Context, sqlText string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.limits.Timeout)
	defer cancel()

	started := time.Now()
	q := b.client.Query(sqlText)
	if b.dataset != "" {
		q.DefaultDatasetID = b.dataset
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, mapExecErr(ctx, err)
	}

	var columns []string
	result := &Result{Rows: make([][]any, 0)}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapExecErr(ctx, err)
		}
		if columns == nil {
			for _, f := range it.Schema {
				columns = append(columns, f.Name)
			}
		}
		if b.limits.MaxRows > 0 && len(result.Rows) >= b.limits.MaxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		result.Rows = append(result.Rows, values)
	}

	if columns == nil {
		// zero-row results still carry a schema once the iterator is drained
		for _, f := range it.Schema {
			columns = append(columns, f.Name)
		}
	}
	result.Columns = columns
	result.Duration = time.Since(started)
	return result, nil
}

func (b *BigQuery) TableColumns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	meta, err := b.client.Dataset(b.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect %q.%q: %w", b.dataset, table, err)
	}
	infos := make([]schema.ColumnInfo, 0, len(meta.Schema))
	for _, f := range meta.Schema {
		infos = append(infos, schema.ColumnInfo{Name: f.Name, Type: string(f.Type)})
	}
	return infos, nil
}

func (b *BigQuery) Ping(ctx context.Context) error {
	q := b.client.Query("SELECT 1")
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("job wait: %w", err)
	}
	return status.Err()
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}
