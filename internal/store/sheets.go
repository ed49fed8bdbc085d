package store

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets backs the record store with one Google spreadsheet, one worksheet
// per table. The worksheet titles must match the Table names.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetIDs      map[Table]int64
}

func NewSheets(ctx context.Context, credentialsJSON []byte, spreadsheetID string) (*Sheets, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	meta, err := svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	s := &Sheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[Table]int64),
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[Table(sh.Properties.Title)] = sh.Properties.SheetId
		}
	}
	for _, t := range []Table{TableTasks, TableUsers, TablePendingPayouts, TableWithdrawals} {
		if _, ok := s.sheetIDs[t]; !ok {
			return nil, fmt.Errorf("spreadsheet is missing worksheet %q", t)
		}
	}
	return s, nil
}

func (s *Sheets) ReadAll(ctx context.Context, table Table) ([]Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, string(table)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", table, err)
	}

	var rows []Row
	for i, raw := range resp.Values {
		if i == 0 {
			continue // header
		}
		values := make([]string, len(raw))
		for j, v := range raw {
			values[j] = fmt.Sprint(v)
		}
		rows = append(rows, Row{Index: i + 1, Values: values})
	}
	return rows, nil
}

func (s *Sheets) Find(ctx context.Context, table Table, col int, value string) (Row, error) {
	rows, err := s.ReadAll(ctx, table)
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

func (s *Sheets) Append(ctx context.Context, table Table, values []string) error {
	raw := make([]interface{}, len(values))
	for i, v := range values {
		raw[i] = v
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, string(table), &sheets.ValueRange{Values: [][]interface{}{raw}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %s: %w", table, err)
	}
	return nil
}

func (s *Sheets) UpdateCell(ctx context.Context, table Table, rowIndex, col int, value string) error {
	cell := fmt.Sprintf("%s!%s%d", table, columnName(col), rowIndex)
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, cell, &sheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: update %s: %w", cell, err)
	}
	return nil
}

func (s *Sheets) DeleteRow(ctx context.Context, table Table, rowIndex int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    s.sheetIDs[table],
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex - 1),
					EndIndex:   int64(rowIndex),
				},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: delete row %d from %s: %w", rowIndex, table, err)
	}
	return nil
}

// columnName converts a 1-based column number to its A1 letter form.
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
