package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// RegisterNode records an agent's registration.
func (c *Controller) RegisterNode(ctx context.Context, info simapi.NodeInfo) {
	c.mu.Lock()
	_, existed := c.observed[info.Name]
	c.observed[info.Name] = &ObservedNode{
		Name:     info.Name,
		Type:     info.Type,
		Host:     info.Host,
		LastSeen: c.now(),
		Active:   true,
	}
	c.mu.Unlock()

	if !existed {
		c.logEvent(ctx, fmt.Sprintf("Node registered: %s (%s)", info.Name, info.Type))
	}
}

// UpdateNodeStatus refreshes liveness and mirrors the agent's reported
// state. Unknown nodes are auto-registered.
func (c *Controller) UpdateNodeStatus(ctx context.Context, status simapi.NodeStatus) {
	c.mu.Lock()
	node, ok := c.observed[status.Name]
	if !ok {
		node = &ObservedNode{Name: status.Name, Type: status.Type, Host: "auto-registered"}
		c.observed[status.Name] = node
	}
	node.LastSeen = c.now()
	node.Active = true
	node.Status = &status
	c.mu.Unlock()

	if !ok {
		c.logEvent(ctx, fmt.Sprintf("Auto-registered node: %s (%s)", status.Name, status.Type))
	}
}

// ObservedNodes returns the registry sorted by name.
func (c *Controller) ObservedNodes() []*ObservedNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ObservedNode, 0, len(c.observed))
	for _, n := range c.observed {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunSweeper marks silent nodes inactive and appends fleet stats until the
// context is cancelled. Inactive nodes do not cause link teardown.
func (c *Controller) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sweepOnce(ctx)
		}
	}
}

func (c *Controller) sweepOnce(ctx context.Context) {
	now := c.now()

	c.mu.Lock()
	var wentInactive []string
	stats := &store.StatsRecord{Timestamp: now}
	for name, node := range c.observed {
		stats.TotalNodes++
		switch node.Type {
		case simapi.TypeSatellite:
			stats.SatelliteCount++
		case simapi.TypeGround:
			stats.GroundStationCount++
		case simapi.TypeVessel:
			stats.VesselCount++
		}
		if now.Sub(node.LastSeen) > NodeInactiveAfter {
			if node.Active {
				node.Active = false
				wentInactive = append(wentInactive, name)
			}
		} else {
			stats.ActiveNodes++
		}
	}
	c.mu.Unlock()

	if len(wentInactive) > 0 {
		sort.Strings(wentInactive)
		c.logEvent(ctx, "Inactive nodes detected: "+strings.Join(wentInactive, ", "))
	}
	if err := c.st.AppendStats(ctx, stats); err != nil {
		util.WithOperation("sweeper").Warnf("persisting stats: %v", err)
	}
}
