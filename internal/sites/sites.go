// Package sites retrieves the list of sites the chat backend can query.
//
// Retrieval never fails outward: transport errors, bad statuses and malformed
// bodies are logged and replaced with a fixed fallback list.
package sites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// All is the aggregate site. It is always the first entry of a site list.
const All = "all"

// MessageType is the discriminator value of a sites response.
const MessageType = "sites"

// ErrBadFormat reports a response body that is not a sites message.
var ErrBadFormat = errors.New("invalid sites response format")

// FetchError reports a non-success HTTP status from the sites endpoint.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

// Lister returns an ordered site list starting with "all". Implementations
// must always return a non-empty list.
type Lister interface {
	ListSites(ctx context.Context) []string
}

var fallback = []string{All, "eventbrite", "oreilly", "scifi_movies", "verge"}

// Fallback returns the static list used when retrieval fails.
func Fallback() []string {
	out := make([]string, len(fallback))
	copy(out, fallback)
	return out
}

// Response is the JSON body of GET /sites.
type Response struct {
	MessageType string   `json:"message-type"`
	Sites       []string `json:"sites"`
}

// Client fetches the site list over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client for the backend at baseURL. A zero timeout
// leaves the http.Client default in place.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListSites returns the backend's sites, or the fallback list on any failure.
func (c *Client) ListSites(ctx context.Context) []string {
	list, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Warn("site list unavailable, using fallback",
			zap.String("base_url", c.baseURL),
			zap.Error(err))
		return Fallback()
	}
	return list
}

// Fetch performs the request and returns the normalized list, or the error
// that ListSites would have swallowed.
func (c *Client) Fetch(ctx context.Context) ([]string, error) {
	endpoint := c.baseURL + "/sites?" + url.Values{"streaming": {"false"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting sites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	var body struct {
		MessageType string          `json:"message-type"`
		Sites       json.RawMessage `json:"sites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if body.MessageType != MessageType {
		return nil, fmt.Errorf("%w: message-type %q", ErrBadFormat, body.MessageType)
	}

	var names []string
	if len(body.Sites) == 0 || json.Unmarshal(body.Sites, &names) != nil || names == nil {
		return nil, fmt.Errorf("%w: sites is not a list of strings", ErrBadFormat)
	}

	c.logger.Debug("site list fetched", zap.Int("count", len(names)))
	return Normalize(names), nil
}

// Normalize sorts names case-insensitively and places a single "all" first.
// Duplicate names are dropped. The sort is stable.
func Normalize(names []string) []string {
	seen := make(map[string]bool, len(names))
	rest := make([]string, 0, len(names))
	for _, n := range names {
		if n == All || seen[n] {
			continue
		}
		seen[n] = true
		rest = append(rest, n)
	}

	// Names equal but for case keep their incoming order.
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(rest, col.CompareString)

	return append([]string{All}, rest...)
}

// Static is a Lister over a fixed set of names.
type Static []string

// ListSites returns the names normalized.
func (s Static) ListSites(context.Context) []string {
	return Normalize(s)
}
