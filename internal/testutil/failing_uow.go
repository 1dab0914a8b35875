package testutil

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"

	"github.com/alexanderramin/procflow/internal/db"
)

// ErrLocked mimics the error text SQLite returns while another connection
// holds the write lock.
var ErrLocked = errors.New("database is locked (5) (SQLITE_BUSY)")

// FaultyUoW runs real transactions through db.SQLiteUnitOfWork but injects
// faults into document writes. Writes are counted from 1 across retries:
// the first BusyWrites report ErrLocked, and write number FailOn returns
// Err. Reads pass through untouched.
type FaultyUoW struct {
	DB         *sql.DB
	BusyWrites int32
	FailOn     int32
	Err        error

	writes atomic.Int32
}

func (u *FaultyUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return db.NewSQLiteUnitOfWork(u.DB).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &faultyTx{DBTX: tx, uow: u})
	})
}

// Writes returns how many document writes were attempted.
func (u *FaultyUoW) Writes() int32 { return u.writes.Load() }

type faultyTx struct {
	db.DBTX
	uow *FaultyUoW
}

func (f *faultyTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.uow.writes.Add(1)
	if n <= f.uow.BusyWrites {
		return nil, ErrLocked
	}
	if n == f.uow.FailOn {
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
