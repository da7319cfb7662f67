package lms

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseUrl     = "https://lms.sicsr.ac.in/"
	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 8
	defaultUserAgent   = "chronicler/1.0"
)

var (
	sesskeyRe    = regexp.MustCompile(`"sesskey":"(.+?)"`)
	invalidLogin = "Invalid login"
)

// Client logs in to a Moodle site and scrapes attendance summaries. It holds
// no session state itself; every Login gets its own cookie jar.
type Client struct {
	base        *url.URL
	transport   http.RoundTripper
	rt          *contextTransport
	timeout     time.Duration
	userAgent   string
	concurrency int
}

type Option func(*Client)

// WithTransport shares a round tripper (and its connection pool) between sessions.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithConcurrency bounds how many courses AllReports scrapes at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewClient(baseUrl string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseUrl) == "" {
		baseUrl = DefaultBaseUrl
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse lms url %q: %w", baseUrl, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("lms url %q must be absolute", baseUrl)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c := &Client{
		base:        base,
		transport:   http.DefaultTransport,
		timeout:     defaultTimeout,
		userAgent:   defaultUserAgent,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rt = newContextTransport(c.transport)
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) collector() *colly.Collector {
	col := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(c.userAgent),
	)
	col.WithTransport(c.rt)
	col.SetRequestTimeout(c.timeout)
	return col
}

type loginForm struct {
	token string
}

func (f *loginForm) UnmarshalDoc(doc *goquery.Document) error {
	token, ok := doc.Find(`#login input[name="logintoken"]`).First().Attr("value")
	if !ok {
		return errors.New("login token not found")
	}
	f.token = token
	return nil
}

// Login signs in with the given credentials and returns a session carrying
// the sesskey that authorizes ajax calls.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	col := c.collector()
	loginUrl := c.endpoint("login/index.php", nil)

	var form loginForm
	if err := c.scrape(ctx, col, loginUrl, &form); err != nil {
		return nil, err
	}

	data := url.Values{
		"username":   {username},
		"password":   {password},
		"logintoken": {form.token},
	}
	hdr := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	body, err := c.fetch(ctx, col, http.MethodPost, loginUrl, strings.NewReader(data.Encode()), hdr)
	if err != nil {
		return nil, err
	}

	text := string(body)
	if strings.Contains(text, invalidLogin) {
		return nil, &AuthError{Username: username, Reason: "invalid login"}
	}
	match := sesskeyRe.FindStringSubmatch(text)
	if match == nil {
		return nil, &AuthError{Username: username, Reason: "no session key in response"}
	}
	return &Session{client: c, col: col, sesskey: match[1], username: username}, nil
}

// AllReports logs in once and collects the attendance report of every
// enrolled course that has an attendance activity, in course list order.
// Courses whose attendance page cannot be read are logged and skipped.
func (c *Client) AllReports(ctx context.Context, username, password string) ([]Report, error) {
	session, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	courses, err := session.EnrolledCourses(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Report, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, course := range courses {
		i, course := i, course
		g.Go(func() error {
			report, err := session.CourseReport(gctx, course)
			if errors.Is(err, ErrMalformedTable) {
				log.Println("Warning:", err)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(results))
	for _, r := range results {
		if r != nil {
			reports = append(reports, *r)
		}
	}
	return reports, nil
}
