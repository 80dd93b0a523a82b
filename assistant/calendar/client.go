// Package calendar provides Calendar Source implementations: a REST client
// for a remote calendar service and a static in-memory source.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/retailmate/core/assistant/contract"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client fetches shopping-relevant events from a calendar service over
// REST. Urgency tiers are always recomputed locally from days-until so they
// never depend on the remote's classification.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("calendar url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid calendar url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func MustNewClient(cfg Config, opts ...ClientOption) *Client {
	c, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// EventsNeedingShopping returns events within daysAhead days that need
// shopping preparation, ordered soonest first.
func (c *Client) EventsNeedingShopping(ctx context.Context, daysAhead int) ([]contract.Event, error) {
	endpoint := c.baseURL + "/events/shopping?days=" + strconv.Itoa(daysAhead)

	var events []contract.Event
	if err := c.get(ctx, endpoint, &events); err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DaysUntil < events[j].DaysUntil
	})
	return events, nil
}

// Event returns one event by id. A 404 reports ErrEventNotFound.
func (c *Client) Event(ctx context.Context, id string) (*contract.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: event id is empty", contract.ErrValidation)
	}

	var ev contract.Event
	if err := c.get(ctx, c.baseURL+"/events/"+url.PathEscape(id), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: calendar request: %v", contract.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read calendar response: %v", contract.ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", contract.ErrEventNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: calendar returned status %d", contract.ErrUpstream, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode calendar response: %v", contract.ErrUpstream, err)
	}
	return nil
}
