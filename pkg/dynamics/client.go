package dynamics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
)

// ControllerClient posts snapshots to the topology controller.
type ControllerClient struct {
	baseURL string
	client  *http.Client
}

// NewControllerClient creates a client for the controller at baseURL.
func NewControllerClient(baseURL string) *ControllerClient {
	return &ControllerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// PostSnapshot delivers one tick's snapshot via PUT /positions.
func (c *ControllerClient) PostSnapshot(ctx context.Context, data *simapi.GraphData) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/positions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controller returned %s", resp.Status)
	}
	return nil
}
