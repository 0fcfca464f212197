// Package sheets serves the list/saveticks contract straight from a Google
// Sheet, for setups without the web app in front of it.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/remote"
	"github.com/harrisonrobin/roadmap/pkg/util"
)

// DefaultRange is read when no range is configured.
const DefaultRange = "Tasks"

// Client reads tasks from, and writes ticks to, one sheet range.
type Client struct {
	srv           *sheets.Service
	spreadsheetID string
	rng           sheetRange
	loc           *time.Location
	log           hclog.Logger
}

// NewService creates a Sheets service on top of an authenticated client.
func NewService(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*sheets.Service, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return srv, nil
}

// NewClient binds srv to a spreadsheet and range such as "Tasks!A1:Q".
func NewClient(srv *sheets.Service, spreadsheetID, readRange string, loc *time.Location, log hclog.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, &remote.ConfigurationError{Setting: "sheet.id", Reason: "is not set"}
	}
	if readRange == "" {
		readRange = DefaultRange
	}
	rng, err := parseRange(readRange)
	if err != nil {
		return nil, &remote.ConfigurationError{Setting: "sheet.range", Reason: err.Error()}
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, rng: rng, loc: loc, log: log}, nil
}

func (c *Client) values(ctx context.Context, op string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, c.rng.raw).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apiError(op, err)
	}
	return resp.Values, nil
}

// List reads every data row below the header.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	values, err := c.values(ctx, "list")
	if err != nil {
		return nil, err
	}
	tasks, err := rowsToTasks(values)
	if err != nil {
		return nil, &remote.ShapeError{Op: "list", Detail: err.Error()}
	}
	remote.NormalizeDates(tasks, c.loc)
	c.log.Debug("read tasks from sheet", "count", len(tasks))
	return tasks, nil
}

// SaveTicks writes the four milestone cells of every row it can locate.
func (c *Client) SaveTicks(ctx context.Context, rows []model.TickRow) error {
	values, err := c.values(ctx, "saveTicks")
	if err != nil {
		return err
	}
	updates, missing, err := tickUpdates(values, rows, c.rng)
	if err != nil {
		return &remote.ShapeError{Op: "saveTicks", Detail: err.Error()}
	}
	for _, key := range missing {
		c.log.Warn("task not found in sheet, skipping", "task", key)
	}
	if len(updates) == 0 {
		return nil
	}

	_, err = c.srv.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             updates,
	}).Context(ctx).Do()
	if err != nil {
		return apiError("saveTicks", err)
	}
	c.log.Debug("wrote ticks to sheet", "rows", len(updates))
	return nil
}

func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &remote.TransportError{
			Op:         op,
			StatusCode: gerr.Code,
			Status:     http.StatusText(gerr.Code),
			Body:       util.Truncate(gerr.Message, 200),
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// rowsToTasks turns a header row plus data rows into tasks, decoding each
// row through the same JSON path the web app responses take.
func rowsToTasks(values [][]interface{}) ([]model.Task, error) {
	tasks := []model.Task{}
	if len(values) == 0 {
		return tasks, nil
	}
	header := headerNames(values[0])
	if _, ok := indexOf(header, "Task"); !ok {
		return nil, fmt.Errorf("header row has no Task column")
	}

	for i, row := range values[1:] {
		rec := make(map[string]interface{}, len(header))
		for col, name := range header {
			if name == "" || col >= len(row) {
				continue
			}
			rec[name] = cellValue(name, row[col])
		}
		if cellString(rec["Task"]) == "" && cellString(rec["TaskID"]) == "" {
			continue
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		var t model.Task
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// tickUpdates builds one single-cell update per milestone per located row.
func tickUpdates(values [][]interface{}, rows []model.TickRow, rng sheetRange) ([]*sheets.ValueRange, []string, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("sheet is empty")
	}
	header := headerNames(values[0])
	cols := make(map[model.Milestone]int, len(model.Milestones))
	for _, m := range model.Milestones {
		col, ok := indexOf(header, m.String())
		if !ok {
			return nil, nil, fmt.Errorf("header row has no %s column", m)
		}
		cols[m] = col
	}
	idCol, hasID := indexOf(header, "TaskID")
	nameCol, _ := indexOf(header, "Task")

	// Key -> 0-based data row offset within values. First match wins.
	located := make(map[string]int, len(values))
	for i := 1; i < len(values); i++ {
		row := values[i]
		key := ""
		if hasID && idCol < len(row) {
			key = cellString(row[idCol])
		}
		if key == "" && nameCol < len(row) {
			key = cellString(row[nameCol])
		}
		if _, seen := located[key]; key != "" && !seen {
			located[key] = i
		}
	}

	var updates []*sheets.ValueRange
	var missing []string
	for _, r := range rows {
		i, ok := located[r.TaskID]
		if !ok {
			missing = append(missing, r.TaskID)
			continue
		}
		ticks := r.Ticks()
		for _, m := range model.Milestones {
			flag := model.Flag(ticks.Get(m))
			updates = append(updates, &sheets.ValueRange{
				Range:  rng.cell(cols[m], i),
				Values: [][]interface{}{{flag.Int()}},
			})
		}
	}
	return updates, missing, nil
}

// cellValue keeps milestone and id cells raw so their lenient decoders see
// numbers and booleans; every other column is text.
func cellValue(column string, v interface{}) interface{} {
	if _, err := model.ParseMilestone(column); err == nil || strings.EqualFold(column, "TaskID") {
		return v
	}
	return cellString(v)
}

func headerNames(row []interface{}) []string {
	names := make([]string, len(row))
	for i, v := range row {
		names[i] = strings.TrimSpace(cellString(v))
	}
	return names
}

func indexOf(names []string, want string) (int, bool) {
	for i, n := range names {
		if strings.EqualFold(n, want) {
			return i, true
		}
	}
	return 0, false
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
