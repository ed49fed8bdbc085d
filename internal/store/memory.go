package store

import (
	"context"
	"sync"
)

// Memory is an in-process record store with the same row/column semantics
// as the sheets backend. It backs tests and local development runs.
type Memory struct {
	mu     sync.Mutex
	tables map[Table][][]string
}

func NewMemory() *Memory {
	return &Memory{
		tables: map[Table][][]string{
			TableTasks:          {{"ID", "Platform", "LocationName", "ReviewText", "LocationURL", "Stars", "Reward", "Status", "HolderID", "ClaimedAt"}},
			TableUsers:          {{"ID", "Username", "Balance", "ReferrerID", "BonusPaid"}},
			TablePendingPayouts: {{"TaskID", "UserID", "Reward", "ConfirmedAt", "Consumed"}},
			TableWithdrawals:    {{"UserID", "Username", "Amount", "Skin", "ListingPrice", "CreatedAt", "Status"}},
		},
	}
}

func (m *Memory) ReadAll(_ context.Context, table Table) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []Row
	for i, values := range m.tables[table] {
		if i == 0 {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		rows = append(rows, Row{Index: i + 1, Values: copied})
	}
	return rows, nil
}

func (m *Memory) Find(ctx context.Context, table Table, col int, value string) (Row, error) {
	rows, err := m.ReadAll(ctx, table)
	if err != nil {
		return Row{}, err
	}
	for _, row := range rows {
		if row.Cell(col) == value {
			return row, nil
		}
	}
	return Row{}, ErrRowNotFound
}

func (m *Memory) Append(_ context.Context, table Table, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]string, len(values))
	copy(copied, values)
	m.tables[table] = append(m.tables[table], copied)
	return nil
}

func (m *Memory) UpdateCell(_ context.Context, table Table, rowIndex, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	if rowIndex < 2 || rowIndex > len(rows) {
		return ErrRowNotFound
	}
	row := rows[rowIndex-1]
	for len(row) < col {
		row = append(row, "")
	}
	row[col-1] = value
	rows[rowIndex-1] = row
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, table Table, rowIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	if rowIndex < 2 || rowIndex > len(rows) {
		return ErrRowNotFound
	}
	m.tables[table] = append(rows[:rowIndex-1], rows[rowIndex:]...)
	return nil
}
