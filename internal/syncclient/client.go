// Package syncclient is a Go client for the shopsync API. It keeps a
// reconcile.Store current from HTTP responses and the realtime feed.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/reconcile"
)

const (
	defaultTimeout = 15 * time.Second
	apiPrefix      = "/api/v1"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	store   *reconcile.Store
	logger  *slog.Logger
	backoff func() retry.Backoff
	notify  func(Notification)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBackoff sets the reconnect policy used by Run. The factory is called
// when Run starts and again after every subscription that became ready.
func WithBackoff(f func() retry.Backoff) Option {
	return func(c *Client) { c.backoff = f }
}

// WithNotify registers a callback invoked after the subscription is ready and
// after every pushed event has been applied to the store.
func WithNotify(f func(Notification)) Option {
	return func(c *Client) { c.notify = f }
}

// New creates a client for the server at baseURL authenticating with token.
func New(baseURL, token string, store *reconcile.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		store:   store,
		logger:  slog.Default(),
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(30*time.Second, b)
}

// Store returns the replica this client maintains.
func (c *Client) Store() *reconcile.Store {
	return c.store
}

// Login exchanges credentials for a bearer token.
func Login(ctx context.Context, hc *http.Client, baseURL, email, password string) (string, error) {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Refresh replaces the replica with a full pull of the group's items.
func (c *Client) Refresh(ctx context.Context, groupID string) error {
	var resp struct {
		Items []model.ItemView `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "items"), nil, &resp); err != nil {
		return err
	}
	c.store.ReplaceAll(resp.Items)
	return nil
}

func (c *Client) AddItem(ctx context.Context, groupID, name string, quantity *int) (*model.ItemView, error) {
	body := map[string]any{"name": name}
	if quantity != nil {
		body["quantity"] = *quantity
	}
	var item model.ItemView
	if err := c.do(ctx, http.MethodPost, groupPath(groupID, "items"), body, &item); err != nil {
		return nil, err
	}
	c.store.ApplyAdded(item)
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, groupID, itemID string, patch model.ItemPatch) (*model.ItemView, error) {
	var item model.ItemView
	if err := c.do(ctx, http.MethodPatch, groupPath(groupID, "items", itemID), patch, &item); err != nil {
		return nil, err
	}
	c.store.ApplyEdited(item)
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, groupID, itemID string) error {
	if err := c.do(ctx, http.MethodDelete, groupPath(groupID, "items", itemID), nil, nil); err != nil {
		return err
	}
	c.store.ApplyRemoved(itemID)
	return nil
}

// ToggleChecked flips the item locally first and sends the new value. The
// local change is rolled back if the server rejects it or is unreachable.
func (c *Client) ToggleChecked(ctx context.Context, groupID, itemID string) error {
	return c.store.ToggleChecked(ctx, itemID, func(ctx context.Context, checked bool) error {
		_, err := c.UpdateItem(ctx, groupID, itemID, model.ItemPatch{Checked: &checked})
		return err
	})
}

func (c *Client) Summary(ctx context.Context, groupID string) (*model.GroupSummary, error) {
	var sum model.GroupSummary
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "summary"), nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func groupPath(groupID string, parts ...string) string {
	return "/groups/" + groupID + "/" + strings.Join(parts, "/")
}

// do sends a JSON request under the API prefix and decodes a JSON response
// into out. Error responses become domain errors chosen by status code.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return domainerrors.New(domainerrors.CodeForStatus(resp.StatusCode), e.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
