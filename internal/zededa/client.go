package zededa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIBase is the zedcontrol endpoint used when none is configured.
	DefaultAPIBase = "https://zedcontrol.local.zededa.net"

	userAgent      = "zededa-ai-bot/1.0"
	requestTimeout = 30 * time.Second
)

// Client is a thin REST client for the Zededa zedcontrol API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given endpoint. The bearer token is
// accepted with or without the "Bearer " prefix.
func NewClient(baseURL, bearerToken string, logger *slog.Logger) (*Client, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if !strings.HasPrefix(bearerToken, "Bearer ") {
		bearerToken = "Bearer " + bearerToken
	}
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      bearerToken,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With("component", "zededa"),
	}, nil
}

// request performs one API call and returns the raw response body.
func (c *Client) request(ctx context.Context, method, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api call failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("API error: %s", resp.Status)
	}

	return body, nil
}

func pagedPath(resource string, pageSize, pageNum int) string {
	return fmt.Sprintf("%s?next.pageSize=%d&next.pageNum=%d", resource, pageSize, pageNum)
}

// Projects returns one page of projects.
func (c *Client) Projects(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/projects", pageSize, pageNum))
}

// ProjectByID returns one project by id.
func (c *Client) ProjectByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/projects/id/"+url.PathEscape(id))
}

// ProjectByName returns one project by name.
func (c *Client) ProjectByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/projects/name/"+url.PathEscape(name))
}

// Datastores returns one page of datastores.
func (c *Client) Datastores(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/datastores", pageSize, pageNum))
}

// DatastoreByID returns one datastore by id.
func (c *Client) DatastoreByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/datastores/id/"+url.PathEscape(id))
}

// DatastoreByName returns one datastore by name.
func (c *Client) DatastoreByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/datastores/name/"+url.PathEscape(name))
}

// Images returns one page of app bundle images.
func (c *Client) Images(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/apps/images", pageSize, pageNum))
}

// ImageByID returns one image by id.
func (c *Client) ImageByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/apps/images/id/"+url.PathEscape(id))
}

// ImageByName returns one image by name.
func (c *Client) ImageByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/apps/images/name/"+url.PathEscape(name))
}

// EdgeApps returns one page of edge applications.
func (c *Client) EdgeApps(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/apps", pageSize, pageNum))
}

// EdgeAppByID returns one edge application by id.
func (c *Client) EdgeAppByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/apps/id/"+url.PathEscape(id))
}

// EdgeAppByName returns one edge application by name.
func (c *Client) EdgeAppByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/apps/name/"+url.PathEscape(name))
}

// Nodes returns one page of edge devices with their status and config.
func (c *Client) Nodes(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/devices/status-config", pageSize, pageNum))
}

// NodeByID returns one edge device by id.
func (c *Client) NodeByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/devices/id/"+url.PathEscape(id))
}

// NodeByName returns one edge device by name.
func (c *Client) NodeByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/devices/name/"+url.PathEscape(name))
}

// Networks returns one page of networks.
func (c *Client) Networks(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/networks", pageSize, pageNum))
}

// NetworkByID returns one network by id.
func (c *Client) NetworkByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/networks/id/"+url.PathEscape(id))
}

// NetworkByName returns one network by name.
func (c *Client) NetworkByName(ctx context.Context, name string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/networks/name/"+url.PathEscape(name))
}

// AppInstances returns one page of app instances with status and config.
func (c *Client) AppInstances(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, pagedPath("/api/v1/apps/instances/status-config", pageSize, pageNum))
}

// AppInstanceStatus returns the status of one app instance by id.
func (c *Client) AppInstanceStatus(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/v1/apps/instances/id/"+url.PathEscape(id)+"/status")
}

// DeleteAppInstance deletes one app instance by id and returns the final
// instance object the API reports.
func (c *Client) DeleteAppInstance(ctx context.Context, id string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodDelete, "/api/v2/apps/instances/id/"+url.PathEscape(id))
}
