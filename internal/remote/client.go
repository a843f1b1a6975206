// Package remote talks to a flowdesk server. Chart adapts one document's
// flowchart endpoint to the editor's load/save contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/interchange"
)

const (
	DefaultTimeout = 10 * time.Second
	// getAttempts is how often idempotent reads are tried before giving up.
	getAttempts = 3
	roleHeader  = "X-Role"
)

// ErrUnavailable indicates the server could not be reached.
var ErrUnavailable = errors.New("flowdesk server unavailable")

// Client is an HTTP client for the document API.
type Client struct {
	baseURL string
	role    domain.Role
	http    *http.Client
}

type Option func(*Client)

func WithRole(role domain.Role) Option {
	return func(c *Client) {
		c.role = role
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		role:    domain.RoleStaff,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func collection(kind domain.DocumentKind) string {
	return string(kind) + "s"
}

func (c *Client) docURL(kind domain.DocumentKind, id string, suffix ...string) string {
	parts := append([]string{c.baseURL, collection(kind), url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/")
}

// do sends one request and decodes a JSON answer into out when out is
// non-nil. Non-2xx statuses are mapped onto domain errors.
func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts = getAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = c.doOnce(ctx, method, target, body, out)
		if lastErr == nil || !isConnectionError(lastErr) || ctx.Err() != nil {
			break
		}
	}
	if isConnectionError(lastErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(roleHeader, string(c.role))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidNode, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrReadOnly, msg)
	default:
		return fmt.Errorf("server returned status %d: %s", status, msg)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

// Available checks whether the server answers its health probe.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.doOnce(ctx, http.MethodGet, c.baseURL+"/healthz", nil, nil) == nil
}

func (c *Client) List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error) {
	var docs []*domain.Document
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/"+collection(kind), nil, &docs); err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}
	return docs, nil
}

func (c *Client) Create(ctx context.Context, kind domain.DocumentKind, name, description string) (*domain.Document, error) {
	body, err := json.Marshal(map[string]string{"name": name, "description": description})
	if err != nil {
		return nil, err
	}
	var d domain.Document
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+collection(kind), body, &d); err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	return &d, nil
}

func (c *Client) Get(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	var d domain.Document
	if err := c.do(ctx, http.MethodGet, c.docURL(kind, id, "document"), nil, &d); err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", kind, id, err)
	}
	return &d, nil
}

func (c *Client) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.docURL(kind, id), nil, nil); err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	return nil
}

func (c *Client) Instantiate(ctx context.Context, templateID, name string) (*domain.Document, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var d domain.Document
	if err := c.do(ctx, http.MethodPost, c.docURL(domain.DocumentTemplate, templateID, "instantiate"), body, &d); err != nil {
		return nil, fmt.Errorf("instantiating template %s: %w", templateID, err)
	}
	return &d, nil
}

// LoadFlowchart returns the document's name and chart.
func (c *Client) LoadFlowchart(ctx context.Context, kind domain.DocumentKind, id string) (string, []domain.Node, error) {
	var d domain.Document
	if err := c.do(ctx, http.MethodGet, c.docURL(kind, id, "document"), nil, &d); err != nil {
		return "", nil, fmt.Errorf("loading flowchart: %w", err)
	}
	if d.Nodes == nil {
		d.Nodes = []domain.Node{}
	}
	for i := range d.Nodes {
		d.Nodes[i].Normalize()
	}
	return d.Name, d.Nodes, nil
}

// SaveFlowchart replaces the document's whole chart.
func (c *Client) SaveFlowchart(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error {
	if nodes == nil {
		nodes = []domain.Node{}
	}
	body, err := json.Marshal(interchange.File{FlowChart: nodes})
	if err != nil {
		return fmt.Errorf("encoding flowchart: %w", err)
	}
	if err := c.do(ctx, http.MethodPut, c.docURL(kind, id, "flowchart"), body, nil); err != nil {
		return fmt.Errorf("saving flowchart: %w", err)
	}
	return nil
}
