package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/topology"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// errCollector keeps the first store-layer error of a reconciliation pass.
// Agent RPC failures are not collected: they are logged, turned into events,
// and retried on the next tick.
type errCollector struct {
	mu  sync.Mutex
	err error
}

func (e *errCollector) add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil {
		e.err = err
	}
}

// ApplySnapshot reconciles one dynamics snapshot against the store and the
// agent fleet. It runs inside the reconciler critical section; a snapshot
// arriving while another is being applied waits. A non-nil error indicates a
// store failure; per-link RPC outcomes never fail the snapshot.
func (c *Controller) ApplySnapshot(ctx context.Context, data *simapi.GraphData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = data
	errs := &errCollector{}

	c.pushPositions(ctx, data)

	// ISL reconciliation: links fan out in parallel, per-node locks keep
	// RPC ordering within each agent.
	var wg sync.WaitGroup
	for _, link := range data.SatelliteLinks {
		link := link
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := c.acquireSlot()
			defer release()
			errs.add(c.reconcileLink(ctx, link))
		}()
	}
	wg.Wait()

	// Uplink reconciliation: every station in the snapshot is diffed, so a
	// station whose candidate set became empty still sheds its uplinks.
	candidates := make(map[string][]simapi.UpLink, len(data.GroundUplinks))
	for _, ul := range data.GroundUplinks {
		candidates[ul.GroundNode] = ul.Uplinks
	}
	var stations []string
	for _, gs := range data.GroundStations {
		stations = append(stations, gs.Name)
	}
	for _, v := range data.Vessels {
		stations = append(stations, v.Name)
	}

	var swg sync.WaitGroup
	for _, name := range stations {
		name := name
		swg.Add(1)
		go func() {
			defer swg.Done()
			release := c.acquireSlot()
			defer release()
			errs.add(c.reconcileStationUplinks(ctx, name, candidates[name]))
		}()
	}
	swg.Wait()

	c.logEvent(ctx, fmt.Sprintf("Applied positions snapshot: %d satellites, %d links, %d stations",
		len(data.Satellites), len(data.SatelliteLinks), len(stations)))
	return errs.err
}

// pushPositions forwards position telemetry to every node, best effort.
func (c *Controller) pushPositions(ctx context.Context, data *simapi.GraphData) {
	var wg sync.WaitGroup
	push := func(name string, req simapi.PositionRequest) {
		defer wg.Done()
		release := c.acquireSlot()
		defer release()
		lock := c.nodeLock(name)
		lock.Lock()
		defer lock.Unlock()
		if err := c.agents.UpdatePosition(ctx, name, req); err != nil {
			util.WithNode(name).Debugf("position push: %v", err)
		}
	}

	for _, sat := range data.Satellites {
		alt := sat.Height
		wg.Add(1)
		go push(sat.Name, simapi.PositionRequest{Lat: sat.Lat, Lon: sat.Lon, Alt: &alt})
	}
	for _, gs := range data.GroundStations {
		wg.Add(1)
		go push(gs.Name, simapi.PositionRequest{Lat: gs.Lat, Lon: gs.Lon})
	}
	for _, v := range data.Vessels {
		wg.Add(1)
		go push(v.Name, simapi.PositionRequest{Lat: v.Lat, Lon: v.Lon})
	}
	wg.Wait()
}

// reconcileLink drives one ISL toward its desired state. Returns only
// store-layer errors.
func (c *Controller) reconcileLink(ctx context.Context, l simapi.Link) error {
	n1, n2 := l.Node1Name, l.Node2Name
	release := c.lockNodes(n1, n2)
	defer release()

	rec, err := c.st.FindLink(ctx, n1, n2)
	switch {
	case errors.Is(err, util.ErrNotFound):
		if !l.Up {
			return nil
		}
		edge, ok := c.graph.Edge(n1, n2)
		if !ok {
			util.WithLink(n1, n2).Warn("snapshot link not present in topology, skipping")
			return nil
		}
		if err := c.createLink(ctx, edge, l.Delay); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Link setup between %s and %s failed: %v", n1, n2, err))
			return nil
		}
		rec = &store.LinkRecord{
			Node1:      edge.Node1,
			Node2:      edge.Node2,
			Subnet:     edge.Subnet,
			IPs:        edge.IPs,
			Interfaces: edge.Interfaces,
			InterRing:  edge.InterRing,
			Up:         true,
			DelayMs:    l.Delay,
			UpdatedAt:  c.now(),
		}
		if err := c.st.UpsertLink(ctx, rec); err != nil {
			return err
		}
		c.logEvent(ctx, fmt.Sprintf("Created link between %s and %s", n1, n2))
		return nil
	case err != nil:
		return err
	}

	upChanged := rec.Up != l.Up
	delayChanged := math.Abs(rec.DelayMs-l.Delay) > DelayHysteresisMs

	if upChanged {
		if err := c.setLinkAdminState(ctx, rec, l.Up); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Link state change between %s and %s failed: %v", n1, n2, err))
			return nil
		}
		rec.Up = l.Up
	}
	if delayChanged {
		if err := c.pushLinkDelay(ctx, rec, l.Delay); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Link delay update between %s and %s failed: %v", n1, n2, err))
			return nil
		}
		rec.DelayMs = l.Delay
	}
	if upChanged || delayChanged {
		rec.UpdatedAt = c.now()
		if err := c.st.UpsertLink(ctx, rec); err != nil {
			return err
		}
		state := "down"
		if rec.Up {
			state = "up"
		}
		c.logEvent(ctx, fmt.Sprintf("Updated link between %s and %s - status: %s, delay: %.3fms",
			n1, n2, state, rec.DelayMs))
	}
	return nil
}

// createLink issues the four RPCs that bring a new ISL up: interfaces on
// both endpoints first, then the link records referencing them.
func (c *Controller) createLink(ctx context.Context, edge *topology.Edge, delayMs float64) error {
	endpoints := []string{edge.Node1, edge.Node2}
	for _, ep := range endpoints {
		req := simapi.InterfaceRequest{
			Name:      edge.Interfaces[ep],
			IP:        edge.IPs[ep],
			PrefixLen: 30,
		}
		if err := c.agents.ConfigureInterface(ctx, ep, req); err != nil {
			return err
		}
	}
	for _, ep := range endpoints {
		other := edge.Peer(ep)
		req := simapi.LinkRequest{
			Neighbor:  other,
			LocalIP:   edge.IPs[ep],
			RemoteIP:  edge.IPs[other],
			Interface: edge.Interfaces[ep],
			Delay:     &delayMs,
		}
		if err := c.agents.ConfigureLink(ctx, ep, req); err != nil {
			return err
		}
	}
	return nil
}

// setLinkAdminState brings both endpoint interfaces up or down.
func (c *Controller) setLinkAdminState(ctx context.Context, rec *store.LinkRecord, up bool) error {
	status := "down"
	if up {
		status = "up"
	}
	for _, ep := range []string{rec.Node1, rec.Node2} {
		req := simapi.InterfaceRequest{Name: rec.Interfaces[ep], Status: status}
		if err := c.agents.ConfigureInterface(ctx, ep, req); err != nil {
			return err
		}
	}
	return nil
}

// pushLinkDelay reprograms the egress delay on both endpoints.
func (c *Controller) pushLinkDelay(ctx context.Context, rec *store.LinkRecord, delayMs float64) error {
	for _, ep := range []string{rec.Node1, rec.Node2} {
		other := rec.Node1
		if ep == rec.Node1 {
			other = rec.Node2
		}
		req := simapi.LinkRequest{Neighbor: other, Delay: &delayMs}
		if err := c.agents.ConfigureLink(ctx, ep, req); err != nil {
			return err
		}
	}
	return nil
}
