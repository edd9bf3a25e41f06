package controller

import (
	"context"
	"fmt"
	"math"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/store"
	"github.com/satmesh-network/satmesh/pkg/topology"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// reconcileStationUplinks diffs one station's persisted uplinks against its
// candidate set: stale uplinks are torn down and deleted, new candidates are
// established, survivors get parameter updates, and exactly one record keeps
// the default-route flag. Returns only store-layer errors.
func (c *Controller) reconcileStationUplinks(ctx context.Context, station string, candidates []simapi.UpLink) error {
	persisted, err := c.st.UplinksForStation(ctx, station)
	if err != nil {
		return err
	}

	candByName := make(map[string]simapi.UpLink, len(candidates))
	for _, u := range candidates {
		candByName[u.SatNode] = u
	}

	var storeErr error
	usedSubnets := make(map[string]bool)
	surviving := make(map[string]*store.UplinkRecord)
	hasDefault := false

	// Tear down uplinks that are no longer candidates. A failed teardown
	// keeps the record so the next tick retries.
	for _, rec := range persisted {
		if _, ok := candByName[rec.Satellite]; ok {
			usedSubnets[rec.Subnet] = true
			surviving[rec.Satellite] = rec
			if rec.Default {
				hasDefault = true
			}
			continue
		}
		if err := c.teardownUplink(ctx, rec); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Uplink teardown from %s to %s failed: %v", rec.Ground, rec.Satellite, err))
			usedSubnets[rec.Subnet] = true
			if rec.Default {
				hasDefault = true
			}
			continue
		}
		if err := c.st.DeleteUplink(ctx, rec.Ground, rec.Satellite); err != nil {
			if storeErr == nil {
				storeErr = err
			}
			continue
		}
		c.logEvent(ctx, fmt.Sprintf("Removed uplink from %s to %s", rec.Ground, rec.Satellite))
	}

	node, _ := c.graph.Node(station)

	for _, u := range candidates {
		if rec, ok := surviving[u.SatNode]; ok {
			if err := c.updateUplinkParams(ctx, rec, u); err != nil {
				if storeErr == nil {
					storeErr = err
				}
			}
			continue
		}

		if node == nil || len(node.UplinkPool) == 0 {
			util.WithNode(station).Warn("station has no reserved uplink subnets, skipping candidate")
			continue
		}
		slot := pickSlot(node.UplinkPool, usedSubnets)
		if slot == nil {
			c.logEvent(ctx, fmt.Sprintf("No free uplink subnet for %s, skipping candidate %s", station, u.SatNode))
			continue
		}

		makeDefault := !hasDefault
		if err := c.establishUplink(ctx, station, u, slot, makeDefault); err != nil {
			c.logEvent(ctx, fmt.Sprintf("Uplink setup from %s to %s failed: %v", station, u.SatNode, err))
			continue
		}
		rec := &store.UplinkRecord{
			Ground:             station,
			Satellite:          u.SatNode,
			Subnet:             slot.Subnet,
			GroundIP:           slot.StationIP,
			SatelliteIP:        slot.SatelliteIP,
			GroundInterface:    uplinkInterface(station, u.SatNode),
			SatelliteInterface: uplinkInterface(u.SatNode, station),
			DistanceKm:         float64(u.Distance),
			DelayMs:            u.Delay,
			Default:            makeDefault,
			UpdatedAt:          c.now(),
		}
		if err := c.st.UpsertUplink(ctx, rec); err != nil {
			if storeErr == nil {
				storeErr = err
			}
			continue
		}
		usedSubnets[slot.Subnet] = true
		if makeDefault {
			hasDefault = true
		}
		c.logEvent(ctx, fmt.Sprintf("Created uplink from %s to %s", station, u.SatNode))
	}

	// The default-route flag transfers when its holder disappeared.
	if !hasDefault {
		if err := c.promoteDefault(ctx, station); err != nil {
			if storeErr == nil {
				storeErr = err
			}
		}
	}
	return storeErr
}

// updateUplinkParams refreshes distance and delay on a surviving uplink.
func (c *Controller) updateUplinkParams(ctx context.Context, rec *store.UplinkRecord, u simapi.UpLink) error {
	delayChanged := math.Abs(rec.DelayMs-u.Delay) > DelayHysteresisMs
	distanceChanged := rec.DistanceKm != float64(u.Distance)
	if !delayChanged && !distanceChanged {
		return nil
	}

	release := c.lockNodes(rec.Ground, rec.Satellite)
	defer release()

	delay := u.Delay
	if err := c.agents.ConfigureLink(ctx, rec.Satellite, simapi.LinkRequest{
		Neighbor: rec.Ground,
		Delay:    &delay,
	}); err != nil {
		c.logEvent(ctx, fmt.Sprintf("Uplink delay update on %s failed: %v", rec.Satellite, err))
		return nil
	}
	if err := c.agents.ConfigureUplink(ctx, rec.Ground, simapi.UplinkRequest{
		Satellite: rec.Satellite,
		LocalIP:   rec.GroundIP,
		RemoteIP:  rec.SatelliteIP,
		Interface: rec.GroundInterface,
		Distance:  float64(u.Distance),
		Delay:     u.Delay,
		Default:   rec.Default,
	}); err != nil {
		c.logEvent(ctx, fmt.Sprintf("Uplink update on %s failed: %v", rec.Ground, err))
		return nil
	}

	rec.DistanceKm = float64(u.Distance)
	rec.DelayMs = u.Delay
	rec.UpdatedAt = c.now()
	return c.st.UpsertUplink(ctx, rec)
}

// establishUplink issues the RPC sequence for a new uplink: interfaces on
// both sides, then the uplink on the station and the plain link on the
// satellite.
func (c *Controller) establishUplink(ctx context.Context, station string, u simapi.UpLink, slot *topology.UplinkSlot, makeDefault bool) error {
	sat := u.SatNode
	release := c.lockNodes(station, sat)
	defer release()

	stationIntf := uplinkInterface(station, sat)
	satIntf := uplinkInterface(sat, station)

	if err := c.agents.ConfigureInterface(ctx, station, simapi.InterfaceRequest{
		Name: stationIntf, IP: slot.StationIP, PrefixLen: 30,
	}); err != nil {
		return err
	}
	if err := c.agents.ConfigureInterface(ctx, sat, simapi.InterfaceRequest{
		Name: satIntf, IP: slot.SatelliteIP, PrefixLen: 30,
	}); err != nil {
		return err
	}

	if err := c.agents.ConfigureUplink(ctx, station, simapi.UplinkRequest{
		Satellite: sat,
		LocalIP:   slot.StationIP,
		RemoteIP:  slot.SatelliteIP,
		Interface: stationIntf,
		Distance:  float64(u.Distance),
		Delay:     u.Delay,
		Default:   makeDefault,
	}); err != nil {
		return err
	}

	delay := u.Delay
	return c.agents.ConfigureLink(ctx, sat, simapi.LinkRequest{
		Neighbor:  station,
		LocalIP:   slot.SatelliteIP,
		RemoteIP:  slot.StationIP,
		Interface: satIntf,
		Delay:     &delay,
	})
}

// teardownUplink brings both interfaces down. The satellite side is not torn
// down further; reserved subnets return to the station's pool once the
// record is deleted.
func (c *Controller) teardownUplink(ctx context.Context, rec *store.UplinkRecord) error {
	release := c.lockNodes(rec.Ground, rec.Satellite)
	defer release()

	if err := c.agents.ConfigureInterface(ctx, rec.Satellite, simapi.InterfaceRequest{
		Name: rec.SatelliteInterface, Status: "down",
	}); err != nil {
		return err
	}
	return c.agents.ConfigureInterface(ctx, rec.Ground, simapi.InterfaceRequest{
		Name: rec.GroundInterface, Status: "down",
	})
}

// promoteDefault hands the default-route flag to the station's first
// remaining uplink, if any.
func (c *Controller) promoteDefault(ctx context.Context, station string) error {
	recs, err := c.st.UplinksForStation(ctx, station)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	for _, rec := range recs {
		if rec.Default {
			util.WithNode(station).Error(util.NewInvariantError("second default uplink requested", station))
			return nil
		}
	}

	rec := recs[0]
	release := c.lockNodes(rec.Ground, rec.Satellite)
	defer release()

	if err := c.agents.ConfigureUplink(ctx, rec.Ground, simapi.UplinkRequest{
		Satellite: rec.Satellite,
		LocalIP:   rec.GroundIP,
		RemoteIP:  rec.SatelliteIP,
		Interface: rec.GroundInterface,
		Distance:  rec.DistanceKm,
		Delay:     rec.DelayMs,
		Default:   true,
	}); err != nil {
		c.logEvent(ctx, fmt.Sprintf("Default uplink promotion for %s failed: %v", station, err))
		return nil
	}

	rec.Default = true
	rec.UpdatedAt = c.now()
	if err := c.st.UpsertUplink(ctx, rec); err != nil {
		return err
	}
	c.logEvent(ctx, fmt.Sprintf("Default uplink for %s moved to %s", station, rec.Satellite))
	return nil
}

func pickSlot(pool []topology.UplinkSlot, used map[string]bool) *topology.UplinkSlot {
	for i := range pool {
		if !used[pool[i].Subnet] {
			return &pool[i]
		}
	}
	return nil
}

func uplinkInterface(local, remote string) string {
	return local + "-to-" + remote
}
