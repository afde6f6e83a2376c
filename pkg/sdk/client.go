package vecshard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is the vecshard SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New creates a Client for the middleware at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if baseURL == "" {
		return nil, errors.New("vecshard: base URL required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("vecshard: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		hc:      hc,
	}, nil
}

// CreateCollection creates a collection with the given dimension and metric
// ("l2", "ip" or "cosine"; empty means l2).
func (c *Client) CreateCollection(ctx context.Context, name string, dim int, metric string) error {
	body := createCollectionRequest{Name: name, Dim: dim, Metric: metric}
	return c.do(ctx, http.MethodPost, "/api/v1/collections", body, nil)
}

// ListCollections returns all collection names.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp collectionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/collections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetCollection returns collection metadata including the point count.
func (c *Client) GetCollection(ctx context.Context, name string) (Collection, error) {
	var resp Collection
	err := c.do(ctx, http.MethodGet, "/api/v1/collections/"+url.PathEscape(name), nil, &resp)
	return resp, err
}

// DropCollection removes a collection and its points on every shard.
func (c *Client) DropCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/collections/"+url.PathEscape(name), nil, nil)
}

// CountPoints returns the number of points in a collection.
func (c *Client) CountPoints(ctx context.Context, name string) (int64, error) {
	var resp countResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/collections/"+url.PathEscape(name)+"/count", nil, &resp)
	return resp.Count, err
}

// CreateFieldIndex indexes a payload field for filtering. fieldType is one of
// keyword, integer, float, bool, text; empty means keyword.
func (c *Client) CreateFieldIndex(ctx context.Context, collection, field, fieldType string) error {
	body := createIndexRequest{Field: field, Type: fieldType}
	return c.do(ctx, http.MethodPost,
		"/api/v1/collections/"+url.PathEscape(collection)+"/index", body, nil)
}

// DropFieldIndex removes a payload field index.
func (c *Client) DropFieldIndex(ctx context.Context, collection, field string) error {
	return c.do(ctx, http.MethodDelete,
		"/api/v1/collections/"+url.PathEscape(collection)+"/index/"+url.PathEscape(field), nil, nil)
}

// UpsertPoints writes points through the writable node.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	body := upsertPointsRequest{Points: points}
	return c.do(ctx, http.MethodPut,
		"/api/v1/collections/"+url.PathEscape(collection)+"/points", body, nil)
}

// DeletePoints removes points by id.
func (c *Client) DeletePoints(ctx context.Context, collection string, ids []string) error {
	body := deletePointsRequest{IDs: ids}
	return c.do(ctx, http.MethodPost,
		"/api/v1/collections/"+url.PathEscape(collection)+"/points/delete", body, nil)
}

// Search scatters the query over the collection's shards and returns the
// merged top-k list.
func (c *Client) Search(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodPost,
		"/api/v1/collections/"+url.PathEscape(collection)+"/search", req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Ready reports whether the middleware can serve traffic.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// ServerVersion returns the middleware build info.
func (c *Client) ServerVersion(ctx context.Context) (Version, error) {
	var resp Version
	err := c.do(ctx, http.MethodGet, "/version", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vecshard: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("vecshard: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("vecshard: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("vecshard: decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Shard   string `json:"shard"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Shard = body.Shard
	} else {
		apiErr.Message = resp.Status
	}
	return apiErr
}
