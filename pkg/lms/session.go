package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gocolly/colly/v2"
)

// Session is a logged in LMS session. It is safe for concurrent use; every
// request runs on its own clone of the session's collector.
type Session struct {
	client   *Client
	col      *colly.Collector
	sesskey  string
	username string
}

func (s *Session) SessKey() string {
	return s.sesskey
}

type rpcCall struct {
	Index      int         `json:"index"`
	MethodName string      `json:"methodname"`
	Args       interface{} `json:"args"`
}

type rpcResult struct {
	Error     bool            `json:"error"`
	Data      json.RawMessage `json:"data"`
	Exception *Exception      `json:"exception"`
}

// call invokes one ajax service method and decodes its data into out.
func (s *Session) call(ctx context.Context, method string, args interface{}, out interface{}) error {
	endpoint := s.client.endpoint("lib/ajax/service.php", url.Values{
		"sesskey": {s.sesskey},
		"info":    {method},
	})
	payload, err := json.Marshal([]rpcCall{{Index: 0, MethodName: method, Args: args}})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	hdr := http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
	}
	body, err := s.client.fetch(ctx, s.col, http.MethodPost, endpoint, bytes.NewReader(payload), hdr)
	if err != nil {
		return err
	}

	var results []rpcResult
	if err := json.Unmarshal(body, &results); err != nil {
		// Some failures are reported as a bare exception object.
		var exc Exception
		if json.Unmarshal(body, &exc) == nil && exc.ErrorCode != "" {
			return s.exception(endpoint, &exc)
		}
		return &ParseError{Url: endpoint, Err: err}
	}
	if len(results) == 0 {
		return &ParseError{Url: endpoint, Err: errors.New("empty response")}
	}
	res := results[0]
	if res.Error || res.Exception != nil {
		exc := res.Exception
		if exc == nil {
			exc = &Exception{Message: "unknown error"}
		}
		return s.exception(endpoint, exc)
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return &ParseError{Url: endpoint, Err: fmt.Errorf("decode %s: %w", method, err)}
	}
	return nil
}

func (s *Session) exception(endpoint string, exc *Exception) error {
	switch exc.ErrorCode {
	case "invalidsesskey", "servicerequireslogin":
		return &AuthError{Username: s.username, Reason: exc.Message, Err: exc}
	}
	return &NetworkError{Url: endpoint, Err: exc}
}
