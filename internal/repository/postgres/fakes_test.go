package postgres

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// fakeTx records statements. Methods it does not override panic through the
// nil embedded interface.
type fakeTx struct {
	pgx.Tx

	execs    []call
	queries  []call
	row      fakeRow
	execErr  error
	queryErr error

	commitErr      error
	committed      bool
	rolledBack     bool
	rollbackCtxErr error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, call{sql: sql, args: args})
	return pgconn.NewCommandTag("SELECT 1"), f.execErr
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, call{sql: sql, args: args})
	return nil, f.queryErr
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, call{sql: sql, args: args})
	return f.row
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	f.rollbackCtxErr = ctx.Err()
	return nil
}

type fakeBeginner struct {
	tx     *fakeTx
	err    error
	opts   pgx.TxOptions
	begins int
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.begins++
	b.opts = opts
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}
