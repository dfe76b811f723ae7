// Package client talks to the sensor/camera backend over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pimonitor"
)

// Backend paths.
const (
	readingPath         = "/reading"
	detectionStatusPath = "/detection/status"
	detectionTogglePath = "/detection/toggle"
	healthPath          = "/health"
	accessLogsPath      = "/access-logs"

	// VideoFeedPath is the continuous MJPEG stream.
	VideoFeedPath = "/video_feed"
	snapshotPath  = "/snapshot"

	// DefaultAccessLogLimit bounds ListAccessLogs when no positive limit is given.
	DefaultAccessLogLimit = 100
)

// HTTPError is returned for any non-2xx backend response.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

// Client is a thin typed wrapper around the backend endpoints.
// Every call is a single round trip with no retry or caching; deadlines come
// from the caller's context and the http.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the backend rooted at baseURL (e.g. "http://pi:5000").
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// FetchReading returns the current sensor snapshot.
func (c *Client) FetchReading(ctx context.Context) (pimonitor.SensorReading, error) {
	var out pimonitor.SensorReading
	err := c.do(ctx, http.MethodGet, readingPath, nil, &out)
	return out, err
}

// FetchDetectionStatus returns the current toggle state.
func (c *Client) FetchDetectionStatus(ctx context.Context) (pimonitor.DetectionStatus, error) {
	var out pimonitor.DetectionStatus
	err := c.do(ctx, http.MethodGet, detectionStatusPath, nil, &out)
	return out, err
}

// ToggleDetection sends a partial update and returns the full confirmed status.
func (c *Client) ToggleDetection(ctx context.Context, upd pimonitor.DetectionUpdate) (pimonitor.DetectionStatus, error) {
	var out pimonitor.DetectionStatus
	err := c.do(ctx, http.MethodPost, detectionTogglePath, upd, &out)
	return out, err
}

// FetchHealth probes the backend.
func (c *Client) FetchHealth(ctx context.Context) (pimonitor.HealthStatus, error) {
	var out pimonitor.HealthStatus
	err := c.do(ctx, http.MethodGet, healthPath, nil, &out)
	return out, err
}

// ListAccessLogs returns at most limit entries in server order.
// A non-positive limit falls back to DefaultAccessLogLimit.
func (c *Client) ListAccessLogs(ctx context.Context, limit int) ([]pimonitor.AccessLogEntry, error) {
	if limit <= 0 {
		limit = DefaultAccessLogLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var out []pimonitor.AccessLogEntry
	if err := c.do(ctx, http.MethodGet, accessLogsPath+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAccessLog removes one entry.
func (c *Client) DeleteAccessLog(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, accessLogsPath+"/"+url.PathEscape(id), nil, nil)
}

// ClearAccessLogs removes all entries.
func (c *Client) ClearAccessLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, accessLogsPath, nil, nil)
}

// SnapshotPath returns the one-off image path with a cache-busting timestamp.
func SnapshotPath(now time.Time) string {
	return snapshotPath + "?t=" + strconv.FormatInt(now.UnixMilli(), 10)
}

// AccessLogImagePath returns the snapshot image path for a log entry.
func AccessLogImagePath(id string) string {
	return accessLogsPath + "/" + url.PathEscape(id) + "/image"
}

// do performs one request; body (if non-nil) is sent as JSON and a 2xx response
// is decoded into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
