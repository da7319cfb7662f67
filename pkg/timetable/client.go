package timetable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultUserAgent = "chronicler/1.0"
	requestTimeout   = 30 * time.Second
	lookahead        = 4 * 7 * 24 * time.Hour
)

// Client fetches and parses timetable reports. It also remembers the booking
// types and rooms it saw over the next four weeks; that vocabulary is loaded
// on first use and kept for the life of the client.
type Client struct {
	baseUrl   *url.URL
	http      *http.Client
	loc       *time.Location
	now       func() time.Time
	userAgent string

	mu    sync.RWMutex
	types map[string]bool
	rooms map[string]bool
	group singleflight.Group
}

type Option func(*Client)

// WithHTTPClient shares an existing client (and its connection pool).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLocation sets the time zone the report's wall clock times are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseUrl string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseUrl) == "" {
		baseUrl = DefaultReportUrl
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse report url %q: %w", baseUrl, err)
	}
	c := &Client{
		baseUrl:   base,
		http:      &http.Client{Timeout: requestTimeout},
		loc:       time.Local,
		now:       time.Now,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Location() *time.Location {
	return c.loc
}

// Fetch runs the query against the report endpoint. Entries are never cached.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Entry, error) {
	reqUrl := q.URL(c.baseUrl).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, */*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Url: reqUrl, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Url: reqUrl, StatusCode: resp.StatusCode}
	}
	return ParseReport(resp.Body, c.loc)
}

// FetchRange is Fetch with the default query for [start, end].
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return c.Fetch(ctx, NewQuery(start, end))
}

// Types returns every booking type seen in the next four weeks, sorted.
func (c *Client) Types(ctx context.Context) ([]string, error) {
	if err := c.populate(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := keys(c.types)
	sort.Strings(types)
	return types, nil
}

// Rooms returns every room booked in the next four weeks, numbers first and
// in numeric order.
func (c *Client) Rooms(ctx context.Context) ([]string, error) {
	if err := c.populate(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := keys(c.rooms)
	SortRooms(rooms)
	return rooms, nil
}

func (c *Client) populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types) > 0 && len(c.rooms) > 0
}

// populate loads the vocabulary once. Concurrent callers share one request,
// which runs detached from any single caller so one cancelled caller does not
// fail the others. An empty report leaves the cache empty so the next call
// tries again.
func (c *Client) populate(ctx context.Context) error {
	if c.populated() {
		return nil
	}
	ch := c.group.DoChan("vocabulary", func() (interface{}, error) {
		if c.populated() {
			return nil, nil
		}
		timeout := c.http.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		start := c.now().In(c.loc)
		entries, err := c.FetchRange(fetchCtx, start, start.Add(lookahead))
		if err != nil {
			return nil, err
		}
		types := make(map[string]bool)
		rooms := make(map[string]bool)
		for _, e := range entries {
			types[e.Type] = true
			rooms[e.Room] = true
		}
		c.mu.Lock()
		c.types, c.rooms = types, rooms
		c.mu.Unlock()
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// SortRooms orders room keys numerically where both parse as integers, puts
// numbered rooms before named ones, and falls back to string order.
func SortRooms(rooms []string) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return RoomLess(rooms[i], rooms[j])
	})
}

func RoomLess(a, b string) bool {
	ai, aErr := strconv.Atoi(strings.TrimSpace(a))
	bi, bErr := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a < b
}
