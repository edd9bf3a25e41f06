package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/satmesh-network/satmesh/pkg/controller"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
)

// apiClient is a thin client for the controller HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("controller returned %s: %s", resp.Status, bytes.TrimSpace(payload))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) setLink(ctx context.Context, upd simapi.LinkUpdate) error {
	return c.do(ctx, http.MethodPut, "/link", upd, nil)
}

func (c *apiClient) positions(ctx context.Context) (*simapi.GraphData, error) {
	var data simapi.GraphData
	if err := c.do(ctx, http.MethodGet, "/positions", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *apiClient) nodes(ctx context.Context) ([]*controller.ObservedNode, error) {
	var nodes []*controller.ObservedNode
	if err := c.do(ctx, http.MethodGet, "/api/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *apiClient) events(ctx context.Context, limit int) ([]store.Event, error) {
	var events []store.Event
	path := fmt.Sprintf("/api/events?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}
