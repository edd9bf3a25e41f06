package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// MonitorInterval is the cadence of the background status worker.
const MonitorInterval = 10 * time.Second

var frrServices = []string{"zebra", "ospfd", "staticd"}

// Monitor is the agent's background worker: it registers the node with the
// controller, probes configured neighbours, checks routing daemon liveness
// and posts the full status document upstream every cycle.
type Monitor struct {
	agent    *Agent
	interval time.Duration
	client   *http.Client
}

// NewMonitor creates the worker for an agent.
func NewMonitor(a *Agent) *Monitor {
	return &Monitor{
		agent:    a,
		interval: MonitorInterval,
		client:   &http.Client{Timeout: RPCTimeout},
	}
}

// Run registers the node, applies the initial forwarding policy, and loops
// until the context is cancelled or the agent is shut down.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.register(ctx); err != nil {
		util.WithNode(m.agent.name).Warnf("registration failed, continuing: %v", err)
	}
	if err := m.agent.EnforceIsolation(); err != nil {
		util.WithNode(m.agent.name).Warnf("initial forwarding policy: %v", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.cycle(ctx)
		if !m.agent.Running() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) register(ctx context.Context) error {
	host, _ := os.Hostname()
	info := simapi.NodeInfo{Name: m.agent.name, Type: m.agent.nodeType, Host: host}
	return m.postJSON(ctx, "/api/node/register", info)
}

func (m *Monitor) cycle(ctx context.Context) {
	st := m.agent.Status()

	// Probe every configured link and refresh its observed state.
	for neighbor, link := range st.Links {
		if link.RemoteIP == "" {
			continue
		}
		latency, err := m.agent.sys.Ping(link.RemoteIP)
		m.agent.mu.Lock()
		stored, ok := m.agent.links[neighbor]
		if ok {
			if err != nil {
				stored.Status = "down"
			} else {
				stored.Status = "up"
			}
			m.agent.links[neighbor] = stored
		}
		m.agent.mu.Unlock()
		if err == nil {
			util.WithNode(m.agent.name).Debugf("ping %s (%s): %.2fms", neighbor, link.RemoteIP, latency)
		}
	}

	for _, service := range frrServices {
		if !m.agent.sys.DaemonAlive(service) {
			util.WithNode(m.agent.name).Debugf("routing daemon %s not running", service)
		}
	}

	if err := m.postJSON(ctx, "/api/node/status", m.agent.Status()); err != nil {
		util.WithNode(m.agent.name).Warnf("status report failed: %v", err)
	}
}

func (m *Monitor) postJSON(ctx context.Context, path string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.agent.controllerURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("controller returned %s", resp.Status)
	}
	return nil
}
