package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// RPCTimeout bounds every single agent call.
const RPCTimeout = 5 * time.Second

// Resolver maps a node name to the base URL of its agent. The default
// resolver uses the node name as hostname with the fixed agent port.
type Resolver func(node string) string

// DefaultResolver builds "http://<node>:5000".
func DefaultResolver(node string) string {
	return fmt.Sprintf("http://%s:%d", node, simapi.AgentPort)
}

// Client is the controller-side client for node agent RPCs. All operations
// are idempotent on the agent side; a failed call is safe to retry on the
// next reconciliation.
type Client struct {
	http    *http.Client
	resolve Resolver
}

// NewClient creates a client with the default resolver.
func NewClient() *Client {
	return &Client{
		http:    &http.Client{Timeout: RPCTimeout},
		resolve: DefaultResolver,
	}
}

// NewClientWithResolver creates a client with a custom node resolver.
func NewClientWithResolver(resolve Resolver) *Client {
	c := NewClient()
	c.resolve = resolve
	return c
}

// ConfigureInterface creates or updates a virtual interface on a node.
func (c *Client) ConfigureInterface(ctx context.Context, node string, req simapi.InterfaceRequest) error {
	return c.post(ctx, node, "/config/interface", req)
}

// ConfigureLink records a link and applies egress delay shaping on a node.
func (c *Client) ConfigureLink(ctx context.Context, node string, req simapi.LinkRequest) error {
	return c.post(ctx, node, "/config/link", req)
}

// ConfigureUplink records an uplink on a ground station or vessel.
func (c *Client) ConfigureUplink(ctx context.Context, node string, req simapi.UplinkRequest) error {
	return c.post(ctx, node, "/config/uplink", req)
}

// ConfigureFRR replaces routing configuration files on a node and triggers a
// reload. The agent writes the files one at a time, so a failed write can
// leave some files replaced and others not.
func (c *Client) ConfigureFRR(ctx context.Context, node string, files map[string]string) error {
	return c.post(ctx, node, "/config/frr", simapi.FRRRequest{Files: files})
}

// UpdatePosition pushes a telemetry position update to a node.
func (c *Client) UpdatePosition(ctx context.Context, node string, req simapi.PositionRequest) error {
	return c.post(ctx, node, "/config/position", req)
}

func (c *Client) post(ctx context.Context, node, path string, body interface{}) error {
	op := path[len("/config/"):]
	data, err := json.Marshal(body)
	if err != nil {
		return util.NewRPCError(node, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(node)+path, bytes.NewReader(data))
	if err != nil {
		return util.NewRPCError(node, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return util.NewRPCError(node, op, err)
	}
	defer resp.Body.Close()

	var result simapi.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return util.NewRPCError(node, op, fmt.Errorf("decoding response: %w", err))
	}
	if !result.Success {
		return util.NewRPCError(node, op, fmt.Errorf("%w: %s", util.ErrAgentRejected, result.Error))
	}
	return nil
}
