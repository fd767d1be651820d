package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client is the HTTP client for the race-calendar API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	categoryID string
	windowDays int
	limiter    *rate.Limiter
	logger     *slog.Logger

	clock func() time.Time
}

// NewClient creates a calendar client with a bounded request timeout.
// The limiter is generous relative to the multi-hour poll cadence; it only
// smooths bursts of on-demand checks.
func NewClient(baseURL, categoryID string, windowDays int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		categoryID: categoryID,
		windowDays: windowDays,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger,
		clock:      time.Now,
	}
}

// raceResponse is the API response wrapper.
type raceResponse struct {
	Races []Event `json:"races"`
}

// FetchUpcoming retrieves events inside [now, now+windowDays] that belong to
// the configured category. Any transport, status, or decode failure returns
// an error; callers must treat that as "try again next cycle", never as
// "no events exist".
func (c *Client) FetchUpcoming(ctx context.Context) ([]Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	now := c.clock()
	windowEnd := now.Add(time.Duration(c.windowDays) * 24 * time.Hour)

	params := url.Values{}
	params.Set("minDate", strconv.FormatInt(now.UnixMilli(), 10))
	params.Set("maxDate", strconv.FormatInt(windowEnd.UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar API returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var result raceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	matched := make([]Event, 0, len(result.Races))
	for _, ev := range result.Races {
		if ev.CategoryID == c.categoryID {
			matched = append(matched, ev)
		}
	}

	c.logger.Debug("calendar fetch complete",
		"events", len(result.Races), "matched", len(matched), "category", c.categoryID)
	return matched, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
