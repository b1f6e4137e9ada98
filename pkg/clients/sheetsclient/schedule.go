package sheetsclient

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// ReplaceRows overwrites a tab with rows, creating the tab if it does not exist.
// Existing values are cleared first so a shorter schedule leaves no stale rows behind.
func (c *Client) ReplaceRows(ctx context.Context, tab string, rows [][]string) error {
	exists, err := c.hasSheet(ctx, tab)
	if err != nil {
		return err
	}

	if exists {
		_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, tab, &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab %s: %w", tab, err)
		}
	} else if _, err := c.CreateSheet(ctx, tab); err != nil {
		return err
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write tab %s: %w", tab, err)
	}

	return nil
}
