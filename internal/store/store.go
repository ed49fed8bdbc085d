package store

import (
	"context"
	"errors"
)

// Table names one of the four logical tables of the backing store.
type Table string

const (
	TableTasks          Table = "Tasks"
	TableUsers          Table = "Users"
	TablePendingPayouts Table = "PendingPayouts"
	TableWithdrawals    Table = "Withdrawals"
)

// Row is a snapshot of one table row. Index is the 1-based position in the
// table, with row 1 reserved for the header; data rows start at index 2.
// The index is only valid until a row above it is deleted.
type Row struct {
	Index  int
	Values []string
}

// Cell reads the 1-based column col, tolerating short rows.
func (r Row) Cell(col int) string {
	if col < 1 || col > len(r.Values) {
		return ""
	}
	return r.Values[col-1]
}

var ErrRowNotFound = errors.New("row not found")

// RecordStore is the full contract the engine has with the backing store.
// There is no multi-cell atomicity: a logical update spanning several cells
// is several calls and can be observed half-applied. Any call can fail with
// a transient error that must be treated as "unknown outcome", not "no-op".
type RecordStore interface {
	// Find returns the first data row whose 1-based column col equals value.
	Find(ctx context.Context, table Table, col int, value string) (Row, error)
	ReadAll(ctx context.Context, table Table) ([]Row, error)
	Append(ctx context.Context, table Table, values []string) error
	UpdateCell(ctx context.Context, table Table, rowIndex, col int, value string) error
	DeleteRow(ctx context.Context, table Table, rowIndex int) error
}
