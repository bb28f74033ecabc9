package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status: %d: %s", e.StatusCode, e.Message)
}

// errorBody covers the {"message": ...} error envelope used by echo and NewsAPI.
type errorBody struct {
	Message string `json:"message"`
}

type Client struct {
	http *http.Client
}

// New returns a client using hc, or a client with a 15s timeout when hc is nil.
func New(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{http: hc}
}

// DoRequest sends payload as JSON and decodes a successful JSON response into v.
// v may be nil when the body is not needed.
func (c *Client) DoRequest(ctx context.Context, method, url string, headers map[string]string, payload []byte, v any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Add(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		d, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		msg := string(d)
		var eb errorBody
		if jserr := json.Unmarshal(d, &eb); jserr == nil && eb.Message != "" {
			msg = eb.Message
		}

		return &StatusError{StatusCode: res.StatusCode, Message: msg}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
