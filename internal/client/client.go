// Package client is a typed HTTP client for the ISMS tracker REST API.
//
// Every call is a single request: there is no retry, caching or request
// de-duplication. Responses are checked against the expected shape at the
// boundary, so a list endpoint that answers with anything other than a JSON
// array (or null) fails with ErrMalformedResponse rather than looking empty.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	EnvBaseURL     = "ISMS_API_URL"
)

var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// BaseURLFromEnv returns ISMS_API_URL or the local default.
func BaseURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		return v
	}
	return DefaultBaseURL
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the time used to date downloaded document names.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs the request and returns the body of a 2xx response.
func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, decodeAPIError(resp.StatusCode, data)
	}
	return resp, data, nil
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	_, data, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeObject(data, out)
}

// decodeObject requires a JSON object body.
func decodeObject(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected object", ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// decodeList accepts a JSON array, or null as the empty list.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected array", ErrMalformedResponse)
	}
	items := []T{}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return items, nil
}

// Templates lists the clauses with a dedicated document template.
func (c *Client) Templates(ctx context.Context) ([]string, error) {
	var resp struct {
		Clauses []string `json:"clauses"`
		Count   int      `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/templates/clauses", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Clauses == nil {
		return []string{}, nil
	}
	return resp.Clauses, nil
}

// Health checks the API and its database.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

type DocumentKind string

const (
	DocumentClause       DocumentKind = "clause"
	DocumentSoA          DocumentKind = "soa"
	DocumentSoACSV       DocumentKind = "soa-csv"
	DocumentSoAPDF       DocumentKind = "soa-pdf"
	DocumentNotionExport DocumentKind = "notion-export"
)

// Document is a generated file as served by the API.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download fetches a generated document. clause is only used for
// DocumentClause.
func (c *Client) Download(ctx context.Context, kind DocumentKind, clause string) (*Document, error) {
	var path string
	switch kind {
	case DocumentClause:
		if strings.TrimSpace(clause) == "" {
			return nil, errors.New("clause is required")
		}
		path = "/generate/clause/" + url.PathEscape(clause)
	case DocumentSoA:
		path = "/generate/soa"
	case DocumentSoACSV:
		path = "/generate/soa?format=csv"
	case DocumentSoAPDF:
		path = "/generate/soa?format=pdf"
	case DocumentNotionExport:
		path = "/generate/notion-export"
	default:
		return nil, fmt.Errorf("unknown document kind: %s", kind)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	resp, data, err := c.send(req)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Filename:    DocumentFilename(kind, clause, c.now()),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		doc.Filename = params["filename"]
	}
	return doc, nil
}

// DocumentFilename is the local name for a downloaded document when the
// server does not send one.
func DocumentFilename(kind DocumentKind, clause string, now time.Time) string {
	day := now.Format(time.DateOnly)
	switch kind {
	case DocumentClause:
		return "ISO27001-Clause-" + strings.TrimSpace(clause) + ".md"
	case DocumentSoACSV:
		return "ISO27001-Statement-of-Applicability-" + day + ".csv"
	case DocumentSoAPDF:
		return "ISO27001-Statement-of-Applicability-" + day + ".pdf"
	case DocumentNotionExport:
		return "ISO27001-Notion-Export-" + day + ".md"
	default:
		return "ISO27001-Statement-of-Applicability-" + day + ".md"
	}
}
