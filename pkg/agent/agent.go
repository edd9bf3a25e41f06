// Package agent implements the per-node daemon that the topology controller
// programs over HTTP: virtual interfaces, link delay shaping, uplinks with
// default routes, routing daemon configuration and diagnostics. It also runs
// the monitor worker that reports the node's full status upstream.
package agent

import (
	"fmt"
	"sync"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// Agent holds one node's mirrored configuration state. Request handlers and
// the monitor worker share it under a single mutex.
type Agent struct {
	name          string
	nodeType      string
	controllerURL string
	satSupernet   string
	sys           System

	mu         sync.Mutex
	interfaces map[string]simapi.InterfaceStatus
	links      map[string]simapi.LinkStatus
	uplinks    []simapi.UplinkStatus
	position   simapi.Position
	running    bool
}

// New creates an agent for the named node. satSupernet is the address range
// ground/vessel forwarding is restricted to.
func New(name, nodeType, controllerURL, satSupernet string, sys System) *Agent {
	return &Agent{
		name:          name,
		nodeType:      nodeType,
		controllerURL: controllerURL,
		satSupernet:   satSupernet,
		sys:           sys,
		interfaces:    make(map[string]simapi.InterfaceStatus),
		links:         make(map[string]simapi.LinkStatus),
		running:       true,
	}
}

func (a *Agent) isStation() bool {
	return a.nodeType == simapi.TypeGround || a.nodeType == simapi.TypeVessel
}

// ApplyInterface creates or updates a virtual interface. Reapplying the same
// address is a no-op; a status field flips admin state.
func (a *Agent) ApplyInterface(req simapi.InterfaceRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: interface name required", util.ErrInvalidConfig)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, exists := a.interfaces[req.Name]

	if req.IP != "" {
		if !exists || existing.IP != req.IP || existing.PrefixLen != req.PrefixLen {
			if err := a.sys.EnsureInterface(req.Name, req.IP, req.PrefixLen); err != nil {
				return err
			}
			existing.IP = req.IP
			existing.PrefixLen = req.PrefixLen
			if existing.Status == "" {
				existing.Status = "up"
			}
		}
	} else if !exists {
		if err := a.sys.EnsureInterface(req.Name, "", 0); err != nil {
			return err
		}
		existing.Status = "up"
	}

	if req.Status != "" && req.Status != existing.Status {
		if err := a.sys.SetInterfaceStatus(req.Name, req.Status == "up"); err != nil {
			return err
		}
		existing.Status = req.Status
	}

	a.interfaces[req.Name] = existing
	return nil
}

// ApplyLink records a link to a neighbor and programs its egress delay.
// Delay-only updates reuse the stored interface name.
func (a *Agent) ApplyLink(req simapi.LinkRequest) error {
	if req.Neighbor == "" {
		return fmt.Errorf("%w: neighbor required", util.ErrInvalidConfig)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	link := a.links[req.Neighbor]
	if req.LocalIP != "" {
		link.LocalIP = req.LocalIP
	}
	if req.RemoteIP != "" {
		link.RemoteIP = req.RemoteIP
	}
	if req.Interface != "" {
		link.Interface = req.Interface
	}
	link.Status = "up"

	if req.Delay != nil {
		if link.Interface == "" {
			return fmt.Errorf("%w: no interface known for link to %s", util.ErrInvalidConfig, req.Neighbor)
		}
		if err := a.sys.ApplyDelay(link.Interface, *req.Delay); err != nil {
			return err
		}
		link.Delay = *req.Delay
	}

	a.links[req.Neighbor] = link
	return nil
}

// ApplyUplink records an uplink to a satellite on a ground/vessel node,
// optionally installing it as the default route, and refreshes the
// forwarding policy.
func (a *Agent) ApplyUplink(req simapi.UplinkRequest) error {
	if !a.isStation() {
		return fmt.Errorf("%w: node type %s has no uplinks", util.ErrNotPermitted, a.nodeType)
	}
	if req.Satellite == "" {
		return fmt.Errorf("%w: satellite required", util.ErrInvalidConfig)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Replace any previous uplink to the same satellite.
	kept := a.uplinks[:0]
	for _, u := range a.uplinks {
		if u.Satellite != req.Satellite {
			kept = append(kept, u)
		}
	}
	a.uplinks = kept

	if req.Default {
		for i := range a.uplinks {
			a.uplinks[i].Default = false
		}
	}
	a.uplinks = append(a.uplinks, simapi.UplinkStatus{
		Satellite: req.Satellite,
		LocalIP:   req.LocalIP,
		RemoteIP:  req.RemoteIP,
		Interface: req.Interface,
		Distance:  req.Distance,
		Delay:     req.Delay,
		Default:   req.Default,
	})

	if err := a.enforceIsolationLocked(); err != nil {
		util.WithNode(a.name).Warnf("forwarding policy: %v", err)
	}

	if req.Default {
		if err := a.sys.SetDefaultRoute(req.RemoteIP); err != nil {
			return err
		}
	}
	if req.Delay > 0 && req.Interface != "" {
		if err := a.sys.ApplyDelay(req.Interface, req.Delay); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPosition updates the node's telemetry position.
func (a *Agent) ApplyPosition(req simapi.PositionRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position.Lat = req.Lat
	a.position.Lon = req.Lon
	if req.Alt != nil {
		a.position.Alt = *req.Alt
	}
}

// ApplyFRR writes the routing daemon configuration and reloads it.
func (a *Agent) ApplyFRR(files map[string]string) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files given", util.ErrInvalidConfig)
	}
	return a.sys.WriteFRRFiles(files)
}

// EnforceIsolation installs the ground/vessel forwarding policy. Satellites
// forward freely.
func (a *Agent) EnforceIsolation() error {
	if !a.isStation() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enforceIsolationLocked()
}

func (a *Agent) enforceIsolationLocked() error {
	if !a.isStation() {
		return nil
	}
	peers := make([]string, 0, len(a.uplinks))
	for _, u := range a.uplinks {
		peers = append(peers, u.RemoteIP)
	}
	return a.sys.EnforceIsolation(a.satSupernet, peers)
}

// Status returns the full node status document.
func (a *Agent) Status() simapi.NodeStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := simapi.NodeStatus{
		Name:       a.name,
		Type:       a.nodeType,
		Interfaces: make(map[string]simapi.InterfaceStatus, len(a.interfaces)),
		Links:      make(map[string]simapi.LinkStatus, len(a.links)),
		Position:   a.position,
		Running:    a.running,
	}
	for k, v := range a.interfaces {
		st.Interfaces[k] = v
	}
	for k, v := range a.links {
		st.Links[k] = v
	}
	if a.isStation() {
		st.Uplinks = append([]simapi.UplinkStatus(nil), a.uplinks...)
	}
	return st
}

// Shutdown marks the agent stopped; the monitor loop exits on next wake.
func (a *Agent) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
}

// Running reports whether the agent is accepting work.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
