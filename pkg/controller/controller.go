// Package controller implements the topology control plane: it owns the
// desired-vs-observed topology state, reconciles dynamics snapshots against
// the store by issuing node agent RPCs, registers nodes, and serves the
// controller HTTP API.
package controller

import (
	"sync"
	"time"

	"github.com/satmesh-network/satmesh/pkg/agent"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/topology"
)

const (
	// DelayHysteresisMs suppresses delay reprogramming for sub-threshold
	// jitter between ticks.
	DelayHysteresisMs = 0.1

	// NodeInactiveAfter is the liveness horizon for observed nodes.
	NodeInactiveAfter = 60 * time.Second

	// SweepInterval is the cadence of the liveness sweeper.
	SweepInterval = 30 * time.Second

	// MaxEventsInMemory bounds the in-memory event ring.
	MaxEventsInMemory = 100

	// RPCFanout bounds concurrent agent RPC jobs within one reconciliation.
	RPCFanout = 32
)

// ObservedNode is the controller's view of one live agent.
type ObservedNode struct {
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Host     string             `json:"host"`
	LastSeen time.Time          `json:"last_seen"`
	Active   bool               `json:"active"`
	Status   *simapi.NodeStatus `json:"status,omitempty"`
}

// Controller is the topology controller. The reconciler critical section —
// snapshot ingestion, manual link updates, registration and the sweeper —
// is serialised by a single mutex; agent RPC fan-out happens inside it.
type Controller struct {
	graph            *topology.Graph
	st               store.Store
	agents           *agent.Client
	loopbackSupernet string

	mu       sync.Mutex
	observed map[string]*ObservedNode
	latest   *simapi.GraphData

	eventsMu sync.Mutex
	events   []store.Event

	nodeLocksMu sync.Mutex
	nodeLocks   map[string]*sync.Mutex
	rpcSem      chan struct{}

	started time.Time
	now     func() time.Time
}

// New creates a controller over an annotated graph, a store, and an agent
// client.
func New(g *topology.Graph, st store.Store, agents *agent.Client, loopbackSupernet string) *Controller {
	return &Controller{
		graph:            g,
		st:               st,
		agents:           agents,
		loopbackSupernet: loopbackSupernet,
		observed:         make(map[string]*ObservedNode),
		nodeLocks:        make(map[string]*sync.Mutex),
		rpcSem:           make(chan struct{}, RPCFanout),
		started:          time.Now(),
		now:              time.Now,
	}
}

// Graph exposes the annotated topology for read-only projections.
func (c *Controller) Graph() *topology.Graph {
	return c.graph
}

// LatestSnapshot returns the most recently applied snapshot, or nil.
func (c *Controller) LatestSnapshot() *simapi.GraphData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// nodeLock returns the per-node mutex that serialises RPCs to one agent so
// interface configuration lands before the link that references it.
func (c *Controller) nodeLock(name string) *sync.Mutex {
	c.nodeLocksMu.Lock()
	defer c.nodeLocksMu.Unlock()
	l, ok := c.nodeLocks[name]
	if !ok {
		l = &sync.Mutex{}
		c.nodeLocks[name] = l
	}
	return l
}

// lockNodes acquires the per-node locks for the given names in sorted order
// and returns the release function.
func (c *Controller) lockNodes(names ...string) func() {
	sorted := append([]string(nil), names...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	locks := make([]*sync.Mutex, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, name := range sorted {
		if seen[name] {
			continue
		}
		seen[name] = true
		l := c.nodeLock(name)
		l.Lock()
		locks = append(locks, l)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// acquireSlot blocks until a fan-out slot is free.
func (c *Controller) acquireSlot() func() {
	c.rpcSem <- struct{}{}
	return func() { <-c.rpcSem }
}
