// Package dynamics advances the orbital and mobility simulation one
// time-slice at a time and derives the set of feasible links and their
// delays. The engine is stateless between ticks except for vessel cursors
// and the per-satellite inter-plane flag used to emit transition events.
package dynamics

import (
	"fmt"

	"github.com/satmesh-network/satmesh/pkg/orbit"
	"github.com/satmesh-network/satmesh/pkg/topology"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// MinElevationDefault is the uplink elevation cutoff in degrees.
const MinElevationDefault = 15.0

// interPlaneMargin keeps cross-plane links down near the orbit's latitude
// turnaround, where the relative geometry changes too fast to track.
const interPlaneMargin = 2.0

type satState struct {
	name string
	prop *orbit.Propagator

	lat    float64
	lon    float64
	height float64

	interPlane     bool
	prevInterPlane bool
}

type stationState struct {
	name   string
	lat    float64
	lon    float64
	vessel *Vessel // nil for fixed ground stations
}

// Engine runs the simulation against a built topology graph.
type Engine struct {
	graph        *topology.Graph
	minElevation float64

	satellites []*satState
	satByName  map[string]*satState
	stations   []*stationState
}

// New creates an engine for the graph. Satellites are given SGP4 propagators
// from their stored elements; vessels start at their first waypoint.
func New(g *topology.Graph, minElevation float64) (*Engine, error) {
	if minElevation <= 0 {
		minElevation = MinElevationDefault
	}
	e := &Engine{
		graph:        g,
		minElevation: minElevation,
		satByName:    make(map[string]*satState),
	}

	for i, name := range g.Satellites() {
		node, _ := g.Node(name)
		if node.Orbit == nil {
			return nil, fmt.Errorf("%w: satellite %s has no orbital elements", util.ErrInvalidConfig, name)
		}
		prop, err := orbit.NewPropagator(name, i+1, *node.Orbit)
		if err != nil {
			return nil, fmt.Errorf("building propagator for %s: %w", name, err)
		}
		st := &satState{name: name, prop: prop, interPlane: true, prevInterPlane: true}
		e.satellites = append(e.satellites, st)
		e.satByName[name] = st
	}

	for _, name := range g.GroundStations() {
		node, _ := g.Node(name)
		e.stations = append(e.stations, &stationState{name: name, lat: node.Lat, lon: node.Lon})
	}
	for _, name := range g.Vessels() {
		node, _ := g.Node(name)
		waypoints := make([]Waypoint, 0, len(node.Waypoints))
		for _, wp := range node.Waypoints {
			waypoints = append(waypoints, Waypoint{Lat: wp.Lat, Lon: wp.Lon})
		}
		v := NewVessel(name, waypoints)
		e.stations = append(e.stations, &stationState{name: name, lat: v.Lat, lon: v.Lon, vessel: v})
	}

	return e, nil
}

// interPlaneUp reports whether a satellite at the given latitude can hold
// cross-plane links. The cutoff is strict.
func interPlaneUp(latDeg, inclination float64) bool {
	limit := inclination - interPlaneMargin
	return latDeg < limit && latDeg > -limit
}

// aboveMinElevation reports whether an elevation clears the cutoff. The
// cutoff is strict: a satellite exactly at the minimum is not a candidate.
func aboveMinElevation(elevationDeg, minElevation float64) bool {
	return elevationDeg > minElevation
}

// nearby is the coarse pre-filter applied before the full topocentric
// computation: both coordinate deltas must be under 20 degrees.
func nearby(stationLat, stationLon, satLat, satLon float64) bool {
	dLat := satLat - stationLat
	dLon := satLon - stationLon
	if dLat < 0 {
		dLat = -dLat
	}
	if dLon < 0 {
		dLon = -dLon
	}
	return dLat < 20 && dLon < 20
}
