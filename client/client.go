// Package client talks to a running cronos daemon
package client

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

	"github.com/barsamuebles/cronos/internal/apperr"
	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/server"
)

var (
	errUnreachable = &apperr.Error{
		Message: "cannot reach the cronos daemon at %s (is `cronos serve` running?)",
	}

	errResponse = &apperr.Error{
		Message: "daemon responded %d: %s",
	}
)

const defaultTimeout = 15 * time.Second

// Client is an HTTP client for the daemon API.
type Client struct {
	http *http.Client
	base string
	addr string
}

// New returns a Client for the daemon listening on addr (host:port).
func New(addr string) *Client {
	return &Client{
		http: &http.Client{Timeout: defaultTimeout},
		base: "http://" + addr,
		addr: addr,
	}
}

func timerPath(jobID int64, stage, action string) string {
	p := fmt.Sprintf("/timers/%d/%s", jobID, url.PathEscape(stage))
	if action != "" {
		p += "/" + action
	}

	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}

		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errUnreachable.Fmt(c.addr).Wrap(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e server.ErrorResponse

		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(b))
		}

		return errResponse.Fmt(resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Health pings the daemon.
func (c *Client) Health(ctx context.Context) (server.Health, error) {
	var h server.Health

	err := c.do(ctx, http.MethodGet, "/health", nil, &h)

	return h, err
}

// Start starts or resumes a stage timer.
func (c *Client) Start(
	ctx context.Context,
	jobID int64,
	stage string,
	checkpoint int64,
) (models.Status, error) {
	var st models.Status

	err := c.do(ctx, http.MethodPost, timerPath(jobID, stage, "start"),
		server.StartRequest{Checkpoint: checkpoint}, &st)

	return st, err
}

// Pause pauses a stage timer and waits for it to be saved.
func (c *Client) Pause(ctx context.Context, jobID int64, stage string) (models.Status, error) {
	var st models.Status

	err := c.do(ctx, http.MethodPost, timerPath(jobID, stage, "pause"), nil, &st)

	return st, err
}

// Reset sets a stage timer back to zero.
func (c *Client) Reset(ctx context.Context, jobID int64, stage string) (models.Status, error) {
	var st models.Status

	err := c.do(ctx, http.MethodPost, timerPath(jobID, stage, "reset"), nil, &st)

	return st, err
}

// Finalize closes a stage for good. A zero at means now.
func (c *Client) Finalize(
	ctx context.Context,
	jobID int64,
	stage string,
	at time.Time,
) (models.Status, error) {
	var (
		st  models.Status
		req server.FinalizeRequest
	)

	if !at.IsZero() {
		req.At = &at
	}

	err := c.do(ctx, http.MethodPost, timerPath(jobID, stage, "finalize"), req, &st)

	return st, err
}

// Status returns the live status of one stage.
func (c *Client) Status(ctx context.Context, jobID int64, stage string) (models.Status, error) {
	var st models.Status

	err := c.do(ctx, http.MethodGet, timerPath(jobID, stage, ""), nil, &st)

	return st, err
}

// List returns the live status of every stage the daemon knows about.
func (c *Client) List(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status

	err := c.do(ctx, http.MethodGet, "/timers", nil, &statuses)

	return statuses, err
}

// StopJob pauses every running stage of a job.
func (c *Client) StopJob(ctx context.Context, jobID int64) ([]models.Status, error) {
	var statuses []models.Status

	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/stop", jobID), nil, &statuses)

	return statuses, err
}

// Records returns the saved records of a job.
func (c *Client) Records(ctx context.Context, jobID int64) ([]models.TimerRecord, error) {
	var records []models.TimerRecord

	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d/records", jobID), nil, &records)

	return records, err
}
