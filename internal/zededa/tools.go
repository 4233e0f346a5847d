package zededa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolServer exposes the Zededa API as MCP tools over stdio. Every handler
// translates an API failure into sentinel text marked as a tool error, so the
// reasoning model can react instead of the call channel breaking.
type ToolServer struct {
	mcpServer *mcpsdk.Server
	client    *Client
	logger    *slog.Logger
}

// NewToolServer creates the tool server and registers the full catalogue.
func NewToolServer(client *Client, logger *slog.Logger) (*ToolServer, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "zededa",
		Version: "1.0",
	}, nil)

	s := &ToolServer{
		mcpServer: mcpServer,
		client:    client,
		logger:    logger.With("component", "toolserver"),
	}
	s.registerTools()

	return s, nil
}

// Run serves MCP over stdin/stdout until the context is cancelled.
func (s *ToolServer) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// PageParams selects one page of a listing.
type PageParams struct {
	PageSize int `json:"page_size,omitempty" jsonschema:"Number of items per page"`
	PageNum  int `json:"page_num,omitempty" jsonschema:"Page number, starting at 1"`
}

func (p PageParams) withDefaults(defaultSize int) (int, int) {
	size, num := p.PageSize, p.PageNum
	if size == 0 {
		size = defaultSize
	}
	if num == 0 {
		num = 1
	}
	return size, num
}

// IDParams addresses one object by id.
type IDParams struct {
	ID string `json:"id" jsonschema:"Object id"`
}

// NameParams addresses one object by name.
type NameParams struct {
	Name string `json:"name" jsonschema:"Object name"`
}

// AppInstanceIDParams addresses one app instance by id.
type AppInstanceIDParams struct {
	AppInstanceID string `json:"app_instance_id" jsonschema:"App instance id"`
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func failureResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: true,
	}
}

// listCall is a client method returning one page of a resource.
type listCall func(ctx context.Context, pageSize, pageNum int) (json.RawMessage, error)

// lookupCall is a client method returning one object by key.
type lookupCall func(ctx context.Context, key string) (json.RawMessage, error)

func (s *ToolServer) listHandler(call listCall, defaultPageSize int, failure string) func(context.Context, *mcpsdk.CallToolRequest, *PageParams) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, params *PageParams) (*mcpsdk.CallToolResult, any, error) {
		size, num := params.withDefaults(defaultPageSize)
		body, err := call(ctx, size, num)
		if err != nil {
			s.logger.Warn("list call failed", "error", err)
			return failureResult(failure), nil, nil
		}
		return textResult(string(body)), nil, nil
	}
}

func (s *ToolServer) byIDHandler(call lookupCall, failureFormat string) func(context.Context, *mcpsdk.CallToolRequest, *IDParams) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, params *IDParams) (*mcpsdk.CallToolResult, any, error) {
		body, err := call(ctx, params.ID)
		if err != nil {
			s.logger.Warn("lookup failed", "id", params.ID, "error", err)
			return failureResult(fmt.Sprintf(failureFormat, params.ID)), nil, nil
		}
		return textResult(string(body)), nil, nil
	}
}

func (s *ToolServer) byNameHandler(call lookupCall, failureFormat string) func(context.Context, *mcpsdk.CallToolRequest, *NameParams) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, params *NameParams) (*mcpsdk.CallToolResult, any, error) {
		body, err := call(ctx, params.Name)
		if err != nil {
			s.logger.Warn("lookup failed", "name", params.Name, "error", err)
			return failureResult(fmt.Sprintf(failureFormat, params.Name)), nil, nil
		}
		return textResult(string(body)), nil, nil
	}
}

func (s *ToolServer) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_projects",
		Description: "Get all projects from Zededa.",
	}, s.listHandler(s.client.Projects, 100, "Failed to retrieve projects."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_project_by_id",
		Description: "Get a specific project from Zededa by its ID.",
	}, s.byIDHandler(s.client.ProjectByID, "Failed to retrieve project with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_project_by_name",
		Description: "Get a specific project from Zededa by its name.",
	}, s.byNameHandler(s.client.ProjectByName, "Failed to retrieve project with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_datastores",
		Description: "Get all datastores from Zededa.",
	}, s.listHandler(s.client.Datastores, 100, "Failed to retrieve datastores."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_datastore_by_id",
		Description: "Get a specific datastore from Zededa by its ID.",
	}, s.byIDHandler(s.client.DatastoreByID, "Failed to retrieve datastore with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_datastore_by_name",
		Description: "Get a specific datastore from Zededa by its name.",
	}, s.byNameHandler(s.client.DatastoreByName, "Failed to retrieve datastore with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_images",
		Description: "Get all images (app bundles) from Zededa.",
	}, s.listHandler(s.client.Images, 100, "Failed to retrieve images."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_image_by_id",
		Description: "Get a specific image (app bundle) from Zededa by its ID.",
	}, s.byIDHandler(s.client.ImageByID, "Failed to retrieve image with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_image_by_name",
		Description: "Get a specific image (app bundle) from Zededa by its name.",
	}, s.byNameHandler(s.client.ImageByName, "Failed to retrieve image with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_edge_apps",
		Description: "Get all edge applications from Zededa.",
	}, s.listHandler(s.client.EdgeApps, 100, "Failed to retrieve edge applications."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_edge_app_by_id",
		Description: "Get a specific edge application from Zededa by its ID.",
	}, s.byIDHandler(s.client.EdgeAppByID, "Failed to retrieve edge application with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_edge_app_by_name",
		Description: "Get a specific edge application from Zededa by its name.",
	}, s.byNameHandler(s.client.EdgeAppByName, "Failed to retrieve edge application with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_nodes",
		Description: "Get all nodes (edge devices) from Zededa.",
	}, s.listHandler(s.client.Nodes, 100, "Failed to retrieve nodes."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_node_by_id",
		Description: "Get a specific node (edge device) from Zededa by its ID.",
	}, s.byIDHandler(s.client.NodeByID, "Failed to retrieve node with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_node_by_name",
		Description: "Get a specific node (edge device) from Zededa by its name.",
	}, s.byNameHandler(s.client.NodeByName, "Failed to retrieve node with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_networks",
		Description: "Get all networks from Zededa.",
	}, s.listHandler(s.client.Networks, 100, "Failed to retrieve networks."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_network_by_id",
		Description: "Get a specific network from Zededa by its ID.",
	}, s.byIDHandler(s.client.NetworkByID, "Failed to retrieve network with ID: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_network_by_name",
		Description: "Get a specific network from Zededa by its name.",
	}, s.byNameHandler(s.client.NetworkByName, "Failed to retrieve network with name: %s."))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_app_instances",
		Description: "Get all app instances from Zededa.",
	}, s.handleAppInstances)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_zededa_app_instance_status_from_id",
		Description: "Get the status of a specific app instance from Zededa by its id.",
	}, s.handleAppInstanceStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_zededa_app_instance_by_id",
		Description: "Delete a specific app instance from Zededa by its id.",
	}, s.handleDeleteAppInstance)
}

// handleAppInstances lists app instances as formatted text blocks rather
// than raw JSON.
func (s *ToolServer) handleAppInstances(ctx context.Context, req *mcpsdk.CallToolRequest, params *PageParams) (*mcpsdk.CallToolResult, any, error) {
	size, num := params.withDefaults(500)
	body, err := s.client.AppInstances(ctx, size, num)
	if err != nil {
		s.logger.Warn("app instance listing failed", "error", err)
		return failureResult("Failed to retrieve app instances or response format is unexpected."), nil, nil
	}

	formatted, ok := FormatAppInstanceList(body)
	if !ok {
		return failureResult("Failed to retrieve app instances or response format is unexpected."), nil, nil
	}
	return textResult(formatted), nil, nil
}

func (s *ToolServer) handleAppInstanceStatus(ctx context.Context, req *mcpsdk.CallToolRequest, params *AppInstanceIDParams) (*mcpsdk.CallToolResult, any, error) {
	// Status payloads are returned raw; they are not always shaped like a
	// full app instance object, so the formatter does not apply.
	body, err := s.client.AppInstanceStatus(ctx, params.AppInstanceID)
	if err != nil {
		s.logger.Warn("app instance status failed", "id", params.AppInstanceID, "error", err)
		return failureResult(fmt.Sprintf("Failed to retrieve status for app instance with ID: %s.", params.AppInstanceID)), nil, nil
	}
	return textResult(string(body)), nil, nil
}

func (s *ToolServer) handleDeleteAppInstance(ctx context.Context, req *mcpsdk.CallToolRequest, params *AppInstanceIDParams) (*mcpsdk.CallToolResult, any, error) {
	body, err := s.client.DeleteAppInstance(ctx, params.AppInstanceID)
	if err != nil {
		s.logger.Warn("app instance delete failed", "id", params.AppInstanceID, "error", err)
		return failureResult(fmt.Sprintf("Failed to delete app instance with ID: %s.", params.AppInstanceID)), nil, nil
	}

	var inst AppInstance
	if err := json.Unmarshal(body, &inst); err != nil {
		return failureResult(fmt.Sprintf("Failed to delete app instance with ID: %s.", params.AppInstanceID)), nil, nil
	}
	return textResult(FormatAppInstance(inst)), nil, nil
}
