// Package client implements the timeline weather-history provider client. A
// request runs asynchronously: Execute starts it, Poll reports whether it has
// finished, and Get blocks for the decoded result. One request is active at a
// time.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"weather-history/internal/models"
	"weather-history/pkg/logging"
)

// Client is the timeline API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
	logger     *logging.StructuredLogger

	mu     sync.Mutex
	active *activeRequest
}

// activeRequest tracks one in-flight request.
type activeRequest struct {
	location models.Location
	done     chan struct{}
	daily    models.DailyHistories
	err      error
}

// New creates a client for the provider endpoint.
func New(baseURL, apiKey string, timeout time.Duration, logger *logging.StructuredLogger) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider URL %q: %w", baseURL, err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    parsed,
		apiKey:     apiKey,
		logger:     logger,
	}, nil
}

// Execute starts a history request for the location and date range. It fails
// if a request is already active.
func (c *Client) Execute(ctx context.Context, location models.Location, dateRange models.DateRange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return fmt.Errorf("%q: a request is already active", location.Alias)
	}

	request, err := c.buildRequest(ctx, location, dateRange)
	if err != nil {
		return err
	}
	active := &activeRequest{location: location, done: make(chan struct{})}
	c.active = active

	go func() {
		defer close(active.done)
		active.daily, active.err = c.run(request, location)
	}()
	c.logger.Debug(ctx, "history request started", logging.Fields{
		"alias": location.Alias,
		"range": dateRange.String(),
	})
	return nil
}

// Poll reports whether the active request has finished. It fails when no
// request is active. A true result guarantees Get will not block.
func (c *Client) Poll() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return false, fmt.Errorf("no active request")
	}
	select {
	case <-c.active.done:
		return true, nil
	default:
		return false, nil
	}
}

// Get blocks until the active request finishes and returns its result,
// clearing the active request.
func (c *Client) Get() (models.DailyHistories, error) {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()
	if active == nil {
		return models.DailyHistories{}, fmt.Errorf("no active request")
	}
	<-active.done
	return active.daily, active.err
}

// buildRequest creates the timeline GET request. The path carries the
// coordinates and the date range; single day ranges use the short form.
func (c *Client) buildRequest(ctx context.Context, location models.Location, dateRange models.DateRange) (*http.Request, error) {
	segments := []string{fmt.Sprintf("%s,%s", location.Latitude, location.Longitude)}
	if dateRange.IsOneDay() {
		segments = append(segments, models.FormatDate(dateRange.Start))
	} else {
		segments = append(segments, models.FormatDate(dateRange.Start), models.FormatDate(dateRange.End))
	}
	endpoint := c.baseURL.JoinPath(segments...)

	query := endpoint.Query()
	query.Set("unitGroup", "us")
	query.Set("include", "days")
	query.Set("key", c.apiKey)
	endpoint.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%q: build history request: %w", location.Alias, err)
	}
	return request, nil
}

// run performs the HTTP exchange and maps the response.
func (c *Client) run(request *http.Request, location models.Location) (models.DailyHistories, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return models.DailyHistories{}, fmt.Errorf("%q: history request failed: %w", location.Alias, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return models.DailyHistories{}, statusError(location, response.StatusCode)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return models.DailyHistories{}, fmt.Errorf("%q: read history response: %w", location.Alias, err)
	}
	return decodeTimeline(location, body)
}

// statusError maps the provider's error statuses to user-facing messages.
func statusError(location models.Location, status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("too many requests today")
	case http.StatusUnauthorized:
		return fmt.Errorf("API key was not accepted")
	case http.StatusNotFound:
		return fmt.Errorf("history not found for %q (%s/%s)",
			location.Name(), location.Latitude, location.Longitude)
	default:
		return fmt.Errorf("HTTP error %d (%s)", status, http.StatusText(status))
	}
}
