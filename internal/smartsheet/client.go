// Package smartsheet is a minimal client for the Smartsheet REST API,
// covering the endpoints the sync pipeline needs.
package smartsheet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.smartsheet.com/2.0"

type Client struct {
	http *resty.Client
}

func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// --- API payloads ---

type Column struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type Cell struct {
	ColumnID int64 `json:"columnId"`
	Value    any   `json:"value,omitempty"`
}

type Row struct {
	ID    int64  `json:"id,omitempty"`
	Cells []Cell `json:"cells"`
}

type Sheet struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

type User struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type apiError struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// Record is one sheet row flattened to a column-title keyed map.
type Record map[string]any

// TestConnection verifies the token by fetching the current user.
func (c *Client) TestConnection(ctx context.Context) (*User, error) {
	var user User
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		SetError(&apiErr).
		Get("/users/me")
	if err != nil {
		return nil, fmt.Errorf("smartsheet: connection check: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("smartsheet: connection check: %s (status %d)", apiErr.Message, resp.StatusCode())
	}
	return &user, nil
}

// GetSheet fetches a sheet with all columns and rows.
func (c *Client) GetSheet(ctx context.Context, sheetID string) (*Sheet, error) {
	var sheet Sheet
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&sheet).
		SetError(&apiErr).
		Get("/sheets/" + sheetID)
	if err != nil {
		return nil, fmt.Errorf("smartsheet: fetch sheet %s: %w", sheetID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("smartsheet: fetch sheet %s: %s (status %d)", sheetID, apiErr.Message, resp.StatusCode())
	}
	return &sheet, nil
}

// Records flattens the sheet rows into column-title keyed maps. Cells
// with no value are omitted.
func (s *Sheet) Records() []Record {
	titles := make(map[int64]string, len(s.Columns))
	for _, col := range s.Columns {
		titles[col.ID] = col.Title
	}
	records := make([]Record, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec := Record{}
		for _, cell := range row.Cells {
			if cell.Value == nil {
				continue
			}
			if title, ok := titles[cell.ColumnID]; ok {
				rec[title] = cell.Value
			}
		}
		records = append(records, rec)
	}
	return records
}

// AddRow appends a row to the sheet. Values are keyed by column title
// and resolved against the sheet's current columns.
func (c *Client) AddRow(ctx context.Context, sheetID string, values map[string]any) error {
	sheet, err := c.GetSheet(ctx, sheetID)
	if err != nil {
		return err
	}
	ids := make(map[string]int64, len(sheet.Columns))
	for _, col := range sheet.Columns {
		ids[col.Title] = col.ID
	}

	var cells []Cell
	for title, value := range values {
		colID, ok := ids[title]
		if !ok {
			continue
		}
		cells = append(cells, Cell{ColumnID: colID, Value: value})
	}
	if len(cells) == 0 {
		return fmt.Errorf("smartsheet: add row to sheet %s: no values matched sheet columns", sheetID)
	}

	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody([]Row{{Cells: cells}}).
		SetError(&apiErr).
		Post("/sheets/" + sheetID + "/rows")
	if err != nil {
		return fmt.Errorf("smartsheet: add row to sheet %s: %w", sheetID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("smartsheet: add row to sheet %s: %s (status %d)", sheetID, apiErr.Message, resp.StatusCode())
	}
	return nil
}
