package topology

import (
	"fmt"
	"time"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/orbit"
	"github.com/satmesh-network/satmesh/pkg/simapi"
)

// SatelliteName names the n-th satellite of ring r.
func SatelliteName(r, n int) string {
	return fmt.Sprintf("R%d_%d", r, n)
}

// CreateNetwork builds the constellation graph from a parsed configuration:
// an R x N torus of satellites plus disconnected ground stations and vessels.
// Ground and vessel connectivity is established at runtime through uplinks,
// so no edges are created for them here.
//
// Neighbour relations are sets: for a ring size of two the +1/-1
// neighbours coincide and a single edge results; a size of one adds no edge.
func CreateNetwork(cfg *config.Network, epoch time.Time) (*Graph, error) {
	g := NewGraph()
	g.Rings = cfg.Rings
	g.RingNodes = cfg.Routers
	g.Inclination = cfg.Inclination
	g.AltitudeKm = cfg.AltitudeKm

	// Satellites: RAAN spreads planes across the full circle, mean anomaly
	// spreads satellites within a plane.
	for r := 0; r < cfg.Rings; r++ {
		for n := 0; n < cfg.Routers; n++ {
			el := &orbit.Elements{
				Inclination:    cfg.Inclination,
				AltitudeKm:     cfg.AltitudeKm,
				RightAscension: float64(r) * 360.0 / float64(cfg.Rings),
				MeanAnomaly:    float64(n) * 360.0 / float64(cfg.Routers),
				Epoch:          epoch,
			}
			node := &Node{
				Name:  SatelliteName(r, n),
				Type:  simapi.TypeSatellite,
				Orbit: el,
			}
			if err := g.AddNode(node); err != nil {
				return nil, err
			}
		}
	}

	// Intra-ring edges: successor within the plane.
	for r := 0; r < cfg.Rings; r++ {
		for n := 0; n < cfg.Routers; n++ {
			next := (n + 1) % cfg.Routers
			if next == n {
				continue
			}
			if err := g.AddEdge(SatelliteName(r, n), SatelliteName(r, next), false); err != nil {
				return nil, err
			}
		}
	}

	// Inter-ring edges: same slot in the successor plane.
	for r := 0; r < cfg.Rings; r++ {
		next := (r + 1) % cfg.Rings
		if next == r {
			continue
		}
		for n := 0; n < cfg.Routers; n++ {
			if err := g.AddEdge(SatelliteName(r, n), SatelliteName(next, n), true); err != nil {
				return nil, err
			}
		}
	}

	if cfg.GroundStations {
		for _, name := range sortedGroundNames(cfg.GroundStationData) {
			pos := cfg.GroundStationData[name]
			node := &Node{
				Name: name,
				Type: simapi.TypeGround,
				Lat:  pos.Lat,
				Lon:  pos.Lon,
			}
			if err := g.AddNode(node); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range sortedVesselNames(cfg.VesselData) {
		waypoints := cfg.VesselData[name]
		node := &Node{
			Name:      name,
			Type:      simapi.TypeVessel,
			Lat:       waypoints[0].Lat,
			Lon:       waypoints[0].Lon,
			Waypoints: waypoints,
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	return g, nil
}
