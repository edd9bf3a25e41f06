package dynamics

import (
	"time"

	"github.com/satmesh-network/satmesh/pkg/orbit"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// Evaluate advances the simulation to t and returns the full desired
// topology snapshot: every node position, every ISL with its up/delay state,
// and the candidate uplink set per ground station and vessel.
func (e *Engine) Evaluate(t time.Time) *simapi.GraphData {
	data := &simapi.GraphData{}

	// Satellite positions.
	for _, sat := range e.satellites {
		sp := sat.prop.SubPointAt(t)
		sat.lat = sp.Lat
		sat.lon = sp.Lon
		sat.height = sp.AltKm
		data.Satellites = append(data.Satellites, simapi.SatellitePosition{
			Name:   sat.name,
			Lat:    sp.Lat,
			Lon:    sp.Lon,
			Height: sp.AltKm,
		})
	}

	// Station positions; vessels advance one step per tick.
	for _, st := range e.stations {
		if st.vessel != nil {
			st.vessel.Advance()
			st.lat = st.vessel.Lat
			st.lon = st.vessel.Lon
			data.Vessels = append(data.Vessels, simapi.VesselPosition{
				Name: st.name,
				Lat:  st.lat,
				Lon:  st.lon,
			})
		} else {
			data.GroundStations = append(data.GroundStations, simapi.GroundStationPosition{
				Name: st.name,
				Lat:  st.lat,
				Lon:  st.lon,
			})
		}
	}

	data.SatelliteLinks = e.satelliteLinks()
	data.GroundUplinks = e.groundUplinks(t)
	return data
}

// satelliteLinks derives per-ISL up/down state and delay from the current
// satellite positions.
func (e *Engine) satelliteLinks() []simapi.Link {
	inclination := e.graph.Inclination

	for _, sat := range e.satellites {
		sat.prevInterPlane = sat.interPlane
		sat.interPlane = interPlaneUp(sat.lat, inclination)
		if sat.interPlane != sat.prevInterPlane {
			state := "restored"
			if !sat.interPlane {
				state = "lost"
			}
			util.WithNode(sat.name).Infof("inter-plane capability %s at lat %.2f", state, sat.lat)
		}
	}

	var links []simapi.Link
	for _, edge := range e.graph.Edges() {
		sat1, ok1 := e.satByName[edge.Node1]
		sat2, ok2 := e.satByName[edge.Node2]
		if !ok1 || !ok2 {
			continue
		}

		up := true
		if edge.InterRing {
			up = sat1.interPlane && sat2.interPlane
		}

		d := orbit.DistanceKm(
			orbit.CartesianKm(sat1.lat, sat1.lon, sat1.height),
			orbit.CartesianKm(sat2.lat, sat2.lon, sat2.height),
		)
		links = append(links, simapi.Link{
			Node1Name: edge.Node1,
			Node2Name: edge.Node2,
			Up:        up,
			Delay:     orbit.LinkDelayMs(d),
		})
	}
	return links
}

// groundUplinks derives the candidate uplink set for every ground station
// and vessel at t.
func (e *Engine) groundUplinks(t time.Time) []simapi.UpLinks {
	var out []simapi.UpLinks
	for _, st := range e.stations {
		var candidates []simapi.UpLink
		for _, sat := range e.satellites {
			if !nearby(st.lat, st.lon, sat.lat, sat.lon) {
				continue
			}
			la := sat.prop.LookAnglesFrom(t, st.lat, st.lon)
			if !aboveMinElevation(la.ElevationDeg, e.minElevation) {
				continue
			}
			candidates = append(candidates, simapi.UpLink{
				SatNode:  sat.name,
				Distance: int(la.RangeKm),
				Delay:    orbit.LinkDelayMs(la.RangeKm),
			})
			util.WithNode(st.name).Debugf("candidate uplink to %s: elev=%.2f range=%.1fkm",
				sat.name, la.ElevationDeg, la.RangeKm)
		}
		if len(candidates) > 0 {
			out = append(out, simapi.UpLinks{GroundNode: st.name, Uplinks: candidates})
		}
	}
	return out
}
