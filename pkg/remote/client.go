// Package remote talks to the web app fronting the plan spreadsheet. It
// exposes two actions: list (GET) and saveticks (POST).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/util"
)

const (
	// DefaultSaveAction is the action name used for persisting ticks.
	DefaultSaveAction = "saveticks"
	// DefaultTimeout bounds each request in addition to the caller's context.
	DefaultTimeout = 30 * time.Second

	bodyLimit = 200
)

// Options tunes a Client.
type Options struct {
	// HTTPClient defaults to a client with DefaultTimeout. Pass an OAuth2
	// client to call web apps that require a signed-in user.
	HTTPClient *http.Client
	SaveAction string
	// Location turns timestamp dates into calendar days.
	Location *time.Location
	Logger   hclog.Logger
}

// Client is an HTTP client for the list/saveticks web app.
type Client struct {
	base       *url.URL
	http       *http.Client
	saveAction string
	loc        *time.Location
	log        hclog.Logger
}

// NewClient validates baseURL and builds a client. A missing base URL is a
// ConfigurationError and no request is ever attempted.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:       u,
		http:       opts.HTTPClient,
		saveAction: opts.SaveAction,
		loc:        opts.Location,
		log:        opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.saveAction == "" {
		c.saveAction = DefaultSaveAction
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.log == nil {
		c.log = hclog.NewNullLogger()
	}
	return c, nil
}

// ParseBaseURL checks that baseURL is set and absolute.
func ParseBaseURL(baseURL string) (*url.URL, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, &ConfigurationError{Setting: "base_url", Reason: "is not set"}
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigurationError{Setting: "base_url", Reason: fmt.Sprintf("is not an absolute URL: %q", baseURL)}
	}
	return u, nil
}

func (c *Client) endpoint(action string) string {
	u := *c.base
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()
	return u.String()
}

type listResponse struct {
	OK    bool            `json:"ok"`
	Tasks json.RawMessage `json:"tasks"`
	Error string          `json:"error"`
}

type saveRequest struct {
	Rows []model.TickRow `json:"rows"`
}

type saveResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// List fetches every task.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	const op = "list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("list"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}

	var resp listResponse
	if err := c.do(req, op, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &RemoteError{Op: op, Message: orDefault(resp.Error, "ok:false")}
	}

	raw := bytes.TrimSpace(resp.Tasks)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ShapeError{Op: op, Detail: "tasks is not an array"}
	}
	tasks, err := ParseTasks(bytes.NewReader(raw))
	if err != nil {
		return nil, &ShapeError{Op: op, Detail: err.Error()}
	}
	NormalizeDates(tasks, c.loc)
	c.log.Debug("listed tasks", "count", len(tasks))
	return tasks, nil
}

// SaveTicks persists rows in one batch.
func (c *Client) SaveTicks(ctx context.Context, rows []model.TickRow) error {
	const op = "saveTicks"
	if rows == nil {
		rows = []model.TickRow{}
	}
	body, err := json.Marshal(saveRequest{Rows: rows})
	if err != nil {
		return fmt.Errorf("%s: encode rows: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.saveAction), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp saveResponse
	if err := c.do(req, op, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &RemoteError{Op: op, Message: orDefault(resp.Error, "ok:false")}
	}
	c.log.Debug("saved ticks", "rows", len(rows))
	return nil
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &TransportError{
			Op:         op,
			StatusCode: res.StatusCode,
			Status:     http.StatusText(res.StatusCode),
			Body:       util.Truncate(string(data), bodyLimit),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ShapeError{Op: op, Detail: fmt.Sprintf("response is not JSON: %v", err)}
	}
	return nil
}

// ParseTasks decodes a JSON array of task records.
func ParseTasks(r io.Reader) ([]model.Task, error) {
	var tasks []model.Task
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks json: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// NormalizeDates turns task dates into calendar days in loc.
func NormalizeDates(tasks []model.Task, loc *time.Location) {
	for i := range tasks {
		tasks[i].Start = tasks[i].Start.Civil(loc)
		tasks[i].End = tasks[i].End.Civil(loc)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
