package portal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Session is a thin stateful wrapper around an HTTP client. It keeps a
// per-host cookie cache, never follows redirects (the login chain inspects
// Location headers itself) and enforces an expected-status contract on every
// call. It is not safe for concurrent use; all requests of one client run
// sequentially because the provider ties server-side state to the cookies.
type Session struct {
	client  *http.Client
	cookies map[string]map[string]string // host → cookie name → value
}

// ReqOptions describes one portal request.
type ReqOptions struct {
	Method  string
	URL     string
	Params  url.Values
	Form    url.Values
	Body    []byte
	Headers map[string]string
	Cookies map[string]string // explicit cookie set, overrides the per-host cache
	// ExpectedStatus defaults to 200. Any other response status fails the
	// call with a StatusError.
	ExpectedStatus int
}

// Response carries the pieces of an HTTP response the scraping layer needs.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func NewSession(timeout time.Duration) *Session {
	return &Session{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cookies: make(map[string]map[string]string),
	}
}

// Request issues one HTTP call. On success the response cookies are merged
// back into the per-host cache by name.
func (s *Session) Request(ctx context.Context, opts ReqOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := opts.URL
	if len(opts.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Params.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case len(opts.Form) > 0:
		body = strings.NewReader(opts.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case len(opts.Body) > 0:
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	cookieSet := opts.Cookies
	if cookieSet == nil {
		cookieSet = s.cookies[req.URL.Host]
	}
	for name, value := range cookieSet {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: opts.URL, Err: err}
	}

	expected := opts.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	if resp.StatusCode != expected {
		return nil, &StatusError{URL: opts.URL, Status: resp.StatusCode, Expected: expected}
	}

	s.mergeCookies(req.URL.Host, resp.Cookies())

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (s *Session) mergeCookies(host string, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	if s.cookies[host] == nil {
		s.cookies[host] = make(map[string]string)
	}
	for _, c := range cookies {
		s.cookies[host][c.Name] = c.Value
	}
}

// SetCookie seeds one cookie into the per-host cache.
func (s *Session) SetCookie(host, name, value string) {
	if s.cookies[host] == nil {
		s.cookies[host] = make(map[string]string)
	}
	s.cookies[host][name] = value
}

// Cookies returns a copy of the cached cookies for host.
func (s *Session) Cookies(host string) map[string]string {
	out := make(map[string]string, len(s.cookies[host]))
	for k, v := range s.cookies[host] {
		out[k] = v
	}
	return out
}

// EvictCookies drops the cached cookies of one host. Forced customer
// reselection uses it so stale per-customer session cookies cannot leak into
// the next selection.
func (s *Session) EvictCookies(host string) {
	delete(s.cookies, host)
}

// Reset clears all cookie state. Login calls it before starting the chain.
func (s *Session) Reset() {
	s.cookies = make(map[string]map[string]string)
}

func (s *Session) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}
