package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const undefinedTable = "42P01"

// RowStore keeps the rows of every dataset in its own table, one DOUBLE PRECISION
// column per schema column.
type RowStore struct {
	pool *pgxpool.Pool
}

// NewRowStore creates a new RowStore
func NewRowStore(pool *pgxpool.Pool) *RowStore {
	return &RowStore{pool: pool}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Write creates table and bulk loads the frame in one transaction
func (s *RowStore) Write(ctx context.Context, table, timeCol string, f *domain.Frame) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	defs := make([]string, 0, len(f.Order)+1)
	defs = append(defs, ident(timeCol)+" DOUBLE PRECISION NOT NULL")
	for _, c := range f.Order {
		defs = append(defs, ident(c)+" DOUBLE PRECISION")
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", ident(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	names := append([]string{timeCol}, f.Order...)
	rows := make([][]any, f.Len())
	for i := range f.Time {
		row := make([]any, 0, len(names))
		row = append(row, f.Time[i])
		for _, c := range f.Order {
			row = append(row, f.Columns[c][i])
		}
		rows[i] = row
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, names, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Columns lists the columns of table in ordinal order; empty when the table is missing
func (s *RowStore) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan columns of %s: %w", table, err)
	}
	return cols, nil
}

// Read loads the time column and those of cols that table carries, ordered by time.
func (s *RowStore) Read(ctx context.Context, table, timeCol string, cols []string) (*domain.Frame, error) {
	have, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(have) == 0 {
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrDatasetNotFound)
	}
	present := make(map[string]bool, len(have))
	for _, c := range have {
		present[c] = true
	}

	f := &domain.Frame{Columns: make(map[string][]float64)}
	selects := []string{ident(timeCol)}
	for _, c := range cols {
		if present[c] && c != timeCol {
			f.Order = append(f.Order, c)
			selects = append(selects, ident(c))
		}
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(selects, ", "), ident(table), ident(timeCol)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	vals := make([]float64, len(selects))
	dest := make([]any, len(selects))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		f.Time = append(f.Time, vals[0])
		for k, c := range f.Order {
			f.Columns[c] = append(f.Columns[c], vals[k+1])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	for _, c := range f.Order {
		if f.Columns[c] == nil {
			f.Columns[c] = []float64{}
		}
	}
	return f, nil
}

// Count returns the number of stored rows
func (s *RowStore) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+ident(table)).Scan(&n)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, fmt.Errorf("table %s: %w", table, domain.ErrDatasetNotFound)
		}
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Info reports whether table exists, its row count and columns
func (s *RowStore) Info(ctx context.Context, table string) (*domain.StoreInfo, error) {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	info := &domain.StoreInfo{Columns: cols}
	if len(cols) == 0 {
		info.Columns = []string{}
		return info, nil
	}
	info.TableExists = true
	if info.StoredRows, err = s.Count(ctx, table); err != nil {
		return nil, err
	}
	return info, nil
}

// Rename moves a table to a new name
func (s *RowStore) Rename(ctx context.Context, from, to string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", ident(from), ident(to)))
	if err != nil {
		if isUndefinedTable(err) {
			return fmt.Errorf("table %s: %w", from, domain.ErrTempNotFound)
		}
		return fmt.Errorf("rename %s: %w", from, err)
	}
	return nil
}

// Drop removes a table if it exists
func (s *RowStore) Drop(ctx context.Context, table string) error {
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+ident(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	return nil
}

// ListTables returns the tables whose name starts with prefix
func (s *RowStore) ListTables(ctx context.Context, prefix string) ([]string, error) {
	pattern := strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`).Replace(prefix) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name LIKE $1
		ORDER BY table_name
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}
	return names, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
