// Package remote talks to the realm content service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// maxErrorBody caps how much of an error response is read into a message.
const maxErrorBody = 4 << 10

// Client implements ports.ContentStore against the collection API:
// one path per kind under baseURL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewClient creates a client for baseURL, e.g. "http://localhost:5000/api".
func NewClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithField("remote", u.Host),
	}, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// List fetches the world's collection of kind.
func (c *Client) List(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	q := url.Values{"world_id": {worldID}}
	var items []entities.Entity
	if err := c.do(ctx, http.MethodGet, c.endpoint(kind.Path()), q, nil, &items); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Plural(), err)
	}
	for i := range items {
		items[i].Kind = kind
	}
	if items == nil {
		items = []entities.Entity{}
	}
	return items, nil
}

// Get fetches one entity. A non-empty worldID must match the entity's world.
func (c *Client) Get(ctx context.Context, worldID string, kind entities.Kind, id string) (entities.Entity, error) {
	var e entities.Entity
	if err := c.do(ctx, http.MethodGet, c.endpoint(kind.Path(), id), worldQuery(worldID), nil, &e); err != nil {
		return entities.Entity{}, fmt.Errorf("fetching %s %s: %w", kind.Singular(), id, err)
	}
	if worldID != "" && e.WorldID != worldID {
		return entities.Entity{}, fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
	}
	e.Kind = kind
	return e, nil
}

// Create posts payload into the world's collection.
func (c *Client) Create(ctx context.Context, worldID string, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	body := payload.WithoutReserved()
	body["world_id"] = worldID

	var e entities.Entity
	if err := c.do(ctx, http.MethodPost, c.endpoint(kind.Path()), nil, body, &e); err != nil {
		return entities.Entity{}, fmt.Errorf("creating %s: %w", kind.Singular(), err)
	}
	e.Kind = kind
	return e, nil
}

// Update sends patch for id. A non-empty worldID scopes the lookup, so an id
// of another world is not found.
func (c *Client) Update(ctx context.Context, worldID string, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	var e entities.Entity
	if err := c.do(ctx, http.MethodPut, c.endpoint(kind.Path(), id), worldQuery(worldID), patch.WithoutReserved(), &e); err != nil {
		return entities.Entity{}, fmt.Errorf("updating %s %s: %w", kind.Singular(), id, err)
	}
	e.Kind = kind
	return e, nil
}

// Delete removes id, scoped like Update.
func (c *Client) Delete(ctx context.Context, worldID string, kind entities.Kind, id string) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, c.endpoint(kind.Path(), id), worldQuery(worldID), nil, &resp); err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind.Singular(), id, err)
	}
	c.logger.WithField("kind", kind).Debug(resp.Message)
	return nil
}

// Changes returns up to limit of the world's most recent changes.
func (c *Client) Changes(ctx context.Context, worldID string, limit int) ([]entities.ChangeEvent, error) {
	q := url.Values{"world_id": {worldID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var changes []entities.ChangeEvent
	if err := c.do(ctx, http.MethodGet, c.endpoint("changes"), q, nil, &changes); err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	return changes, nil
}

func worldQuery(worldID string) url.Values {
	if worldID == "" {
		return nil
	}
	return url.Values{"world_id": {worldID}}
}

func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	return &u
}

// do performs one request and decodes a 2xx JSON body into out. Failures
// are wrapped in the ports sentinel matching the status.
func (c *Client) do(ctx context.Context, method string, u *url.URL, query url.Values, in, out any) error {
	if query != nil {
		cp := *u
		cp.RawQuery = query.Encode()
		u = &cp
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ports.ErrNetwork, ctxErr)
		}
		return fmt.Errorf("%w: %v", ports.ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     u.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("remote request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding response: %v", ports.ErrValidation, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var doc struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &doc) == nil {
		switch {
		case doc.Error != "":
			msg = doc.Error
		case doc.Message != "":
			msg = doc.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = ports.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode >= 500:
		sentinel = ports.ErrValidation
	default:
		sentinel = ports.ErrNetwork
	}
	return fmt.Errorf("%w: %d %s", sentinel, resp.StatusCode, msg)
}
