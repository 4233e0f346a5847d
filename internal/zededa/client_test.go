package zededa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
}

func newCaptureServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.EscapedPath()
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("http://example.invalid", "", nil)
	require.Error(t, err)
}

func TestClientNormalizesBearerToken(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, `{}`)

	client, err := NewClient(server.URL, "tok-123", nil)
	require.NoError(t, err)
	_, err = client.Projects(context.Background(), 100, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", captured.header.Get("Authorization"))
}

func TestClientKeepsExistingBearerPrefix(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, `{}`)

	client, err := NewClient(server.URL, "Bearer tok-123", nil)
	require.NoError(t, err)
	_, err = client.Projects(context.Background(), 100, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", captured.header.Get("Authorization"))
}

func TestClientRequestShape(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, `{"list":[]}`)
	client, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)

	body, err := client.Nodes(context.Background(), 50, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"list":[]}`, string(body))

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/api/v1/devices/status-config", captured.path)
	assert.Equal(t, "next.pageSize=50&next.pageNum=2", captured.query)
	assert.Equal(t, "zededa-ai-bot/1.0", captured.header.Get("User-Agent"))
	assert.Equal(t, "application/geo+json", captured.header.Get("Accept"))
}

func TestClientEscapesPathParameters(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, `{}`)
	client, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)

	_, err = client.NodeByName(context.Background(), "edge node 1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/devices/name/edge%20node%201", captured.path)
}

func TestClientLookupPaths(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
		want string
	}{
		{"project by id", func(c *Client) error {
			_, err := c.ProjectByID(context.Background(), "p1")
			return err
		}, "/api/v1/projects/id/p1"},
		{"datastore by name", func(c *Client) error {
			_, err := c.DatastoreByName(context.Background(), "ds")
			return err
		}, "/api/v1/datastores/name/ds"},
		{"image by id", func(c *Client) error {
			_, err := c.ImageByID(context.Background(), "img")
			return err
		}, "/api/v1/apps/images/id/img"},
		{"edge app by name", func(c *Client) error {
			_, err := c.EdgeAppByName(context.Background(), "app")
			return err
		}, "/api/v1/apps/name/app"},
		{"network by id", func(c *Client) error {
			_, err := c.NetworkByID(context.Background(), "net")
			return err
		}, "/api/v1/networks/id/net"},
		{"app instance status", func(c *Client) error {
			_, err := c.AppInstanceStatus(context.Background(), "inst")
			return err
		}, "/api/v1/apps/instances/id/inst/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := newCaptureServer(t, http.StatusOK, `{}`)
			client, err := NewClient(server.URL, "tok", nil)
			require.NoError(t, err)

			require.NoError(t, tt.call(client))
			assert.Equal(t, tt.want, captured.path)
			assert.Equal(t, http.MethodGet, captured.method)
		})
	}
}

func TestClientDeleteAppInstance(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, `{"id":"inst-1"}`)
	client, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)

	_, err = client.DeleteAppInstance(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, captured.method)
	assert.Equal(t, "/api/v2/apps/instances/id/inst-1", captured.path)
}

func TestClientErrorsOnBadStatus(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusUnauthorized, `{"error":"bad token"}`)
	client, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)

	_, err = client.Projects(context.Background(), 100, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClientErrorsOnTransportFailure(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusOK, `{}`)
	server.Close()
	client, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)

	_, err = client.Projects(context.Background(), 100, 1)
	require.Error(t, err)
}
