package maproulette

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// PageLimit is the maximum number of user IDs the leaderboard endpoint
// accepts in a single query.
const PageLimit = 50

const (
	findUserPath    = "api/v2/users/find"
	leaderboardPath = "api/v2/data/%s/leaderboard"
)

// MetricKind selects which leaderboard dimension to query.
type MetricKind string

const (
	MetricEditor MetricKind = "editor"
	MetricQC     MetricKind = "qc"
)

// dimension maps a metric kind to the path segment the server expects.
var dimension = map[MetricKind]string{
	MetricEditor: "user",
	MetricQC:     "reviewer",
}

func ParseMetricKind(s string) (MetricKind, error) {
	switch MetricKind(strings.ToLower(s)) {
	case MetricEditor:
		return MetricEditor, nil
	case MetricQC:
		return MetricQC, nil
	}
	return "", fmt.Errorf("unknown metric type %q (want editor or qc)", s)
}

// Window is an inclusive calendar date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// RequestError reports a non-success response from the server.
type RequestError struct {
	Status int
	URL    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.URL)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey string, verifyCert bool, timeout time.Duration) *Client {
	transport := http.DefaultTransport
	if !verifyCert {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
	}
}

type userRecord struct {
	ID json.Number `json:"id"`
}

type leaderboardRecord struct {
	Name           string `json:"name"`
	CompletedTasks int    `json:"completedTasks"`
}

// FindUserID looks up the numeric ID for a username. An empty result from
// the server means the user does not exist; that is reported as an empty ID
// with a nil error.
func (c *Client) FindUserID(ctx context.Context, username string) (string, error) {
	params := url.Values{}
	params.Set("username", username)

	var records []userRecord
	if err := c.get(ctx, findUserPath, params, &records); err != nil {
		return "", err
	}

	if len(records) == 0 {
		return "", nil
	}
	return records[0].ID.String(), nil
}

// Leaderboard fetches completed-task counts for one page of user IDs over
// the given window. Duplicate names in the response overwrite earlier
// entries.
func (c *Client) Leaderboard(ctx context.Context, kind MetricKind, ids []string, window Window) (map[string]int, error) {
	dim, ok := dimension[kind]
	if !ok {
		return nil, fmt.Errorf("unknown metric type %q", kind)
	}

	params := url.Values{}
	params.Set("start", window.Start.Format("2006-01-02"))
	params.Set("end", window.End.Format("2006-01-02"))
	params.Set("limit", fmt.Sprint(PageLimit))
	params.Set("userIds", strings.Join(ids, ","))

	var records []leaderboardRecord
	if err := c.get(ctx, fmt.Sprintf(leaderboardPath, dim), params, &records); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(records))
	for _, record := range records {
		counts[record.Name] = record.CompletedTasks
	}
	return counts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &RequestError{Status: resp.StatusCode, URL: requestURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
