package lms

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Unmarshaler reads the fields it needs out of a fetched page.
type Unmarshaler interface {
	UnmarshalDoc(doc *goquery.Document) error
}

// fetch performs a single request on a clone of c, so callbacks never leak
// between requests while the cookie jar and transport stay shared. ctx
// bounds the request in flight as well as the wait before it.
func (cl *Client) fetch(ctx context.Context, c *colly.Collector, method, url string, body io.Reader, hdr http.Header) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Url: url, Err: err}
	}

	var (
		out    []byte
		status int
	)
	c = c.Clone() // same collector but without old callbacks
	c.OnResponse(func(res *colly.Response) {
		out = res.Body
	})
	c.OnError(func(res *colly.Response, err error) {
		if res != nil {
			status = res.StatusCode
		}
	})

	if hdr == nil {
		hdr = http.Header{}
	}
	hdr.Set("User-Agent", c.UserAgent)
	release := cl.rt.bind(ctx, hdr)
	defer release()

	if err := c.Request(method, url, body, nil, hdr); err != nil {
		if status != 0 {
			return nil, &NetworkError{Url: url, StatusCode: status}
		}
		return nil, &NetworkError{Url: url, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Url: url, Err: err}
	}
	return out, nil
}

// scrape fetches url and hands the parsed document to u.
func (cl *Client) scrape(ctx context.Context, c *colly.Collector, url string, u Unmarshaler) error {
	body, err := cl.fetch(ctx, c, http.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &ParseError{Url: url, Err: err}
	}
	if err := u.UnmarshalDoc(doc); err != nil {
		return &ParseError{Url: url, Err: err}
	}
	return nil
}
