package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ASP.NET postback field names.
const (
	EventTargetField   = "__EVENTTARGET"
	EventArgumentField = "__EVENTARGUMENT"
)

// Defaults used when no option overrides them.
const (
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024
)

// Page is a fetched HTML document.
type Page struct {
	// URL is the final URL after redirects.
	URL *url.URL

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Body is the raw response body, truncated at the browser's size limit.
	Body []byte

	// Title is the text of the first <title> element.
	Title string

	// Forms are the forms of the document in order.
	Forms []Form
}

// Form returns the first form matched by selector ("#id", a name, or "" for
// the first form).
func (p *Page) Form(selector string) (*Form, error) {
	for i := range p.Forms {
		if p.Forms[i].matches(selector) {
			return &p.Forms[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrFormNotFound, selector, p.URL)
}

// Reader returns a reader over the page body.
func (p *Page) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

// Browser is one logical browsing session.
type Browser struct {
	client      *http.Client
	maxBodySize int64
	logger      *slog.Logger

	// current is the last HTML page returned by Open, SubmitForm or Postback.
	current *Page
}

// Option configures a Browser.
type Option func(*browserOptions)

type browserOptions struct {
	client       *http.Client
	proxyAddress string
	timeout      time.Duration
	userAgent    string
	maxBodySize  int64
	logger       *slog.Logger
}

// WithHTTPClient uses client instead of a new one. The client should carry a
// cookie jar for session continuity.
func WithHTTPClient(client *http.Client) Option {
	return func(o *browserOptions) {
		o.client = client
	}
}

// WithProxy routes requests through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(o *browserOptions) {
		o.proxyAddress = address
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *browserOptions) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *browserOptions) {
		o.userAgent = ua
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(o *browserOptions) {
		o.maxBodySize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *browserOptions) {
		o.logger = logger
	}
}

// New creates a Browser with an empty session.
func New(opts ...Option) (*Browser, error) {
	o := &browserOptions{
		timeout:     defaultTimeout,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		var err error
		client, err = NewHTTPClient(o.proxyAddress, o.timeout)
		if err != nil {
			return nil, err
		}
	}
	if o.maxBodySize <= 0 {
		o.maxBodySize = defaultMaxBodySize
	}

	if o.userAgent != "" {
		wrapped := *client
		wrapped.Transport = &headerInjectingTransport{
			base:    client.Transport,
			headers: map[string]string{"User-Agent": o.userAgent},
		}
		client = &wrapped
	}

	return &Browser{
		client:      client,
		maxBodySize: o.maxBodySize,
		logger:      o.logger,
	}, nil
}

// Current returns the last opened HTML page, or nil.
func (b *Browser) Current() *Page {
	return b.current
}

// Open fetches rawURL with a GET request and makes it the current page.
func (b *Browser) Open(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return b.doPage(req)
}

// SubmitForm submits the form matched by formSelector on the current page.
// The form's current values, hidden view-state included, are sent with
// fields replacing values of the same name.
func (b *Browser) SubmitForm(ctx context.Context, formSelector string, fields map[string]string) (*Page, error) {
	if b.current == nil {
		return nil, ErrNoPage
	}
	form, err := b.current.Form(formSelector)
	if err != nil {
		return nil, err
	}

	values := form.Values(fields)
	b.logger.Debug("submitting form",
		"form", formSelector,
		"action", form.Action,
		"method", form.Method,
		"fields", len(values),
	)

	var req *http.Request
	if form.Method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, form.Action, strings.NewReader(values.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		u, err := url.Parse(form.Action)
		if err != nil {
			return nil, fmt.Errorf("invalid form action %q: %w", form.Action, err)
		}
		u.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}
	if b.current.URL != nil {
		req.Header.Set("Referer", b.current.URL.String())
	}
	return b.doPage(req)
}

// Postback submits an ASP.NET postback for target with argument, e.g. a
// grid control and "Page$Next".
func (b *Browser) Postback(ctx context.Context, formSelector, target, argument string) (*Page, error) {
	return b.SubmitForm(ctx, formSelector, map[string]string{
		EventTargetField:   target,
		EventArgumentField: argument,
	})
}

// GetJSON fetches rawURL and returns the body. The current page is unchanged.
func (b *Browser) GetJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	_, _, body, err := b.do(req)
	return body, err
}

func (b *Browser) doPage(req *http.Request) (*Page, error) {
	finalURL, status, body, err := b.do(req)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", finalURL, err)
	}
	title, forms := parseDocument(doc, finalURL)

	page := &Page{
		URL:        finalURL,
		StatusCode: status,
		Body:       body,
		Title:      title,
		Forms:      forms,
	}
	b.current = page
	return page, nil
}

func (b *Browser) do(req *http.Request) (*url.URL, int, []byte, error) {
	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBodySize))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}

	b.logger.Debug("http request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, nil, fmt.Errorf("%w: %d from %s %s", ErrUnexpectedStatus, resp.StatusCode, req.Method, req.URL)
	}
	return resp.Request.URL, resp.StatusCode, body, nil
}
