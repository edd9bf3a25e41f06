package topology

import (
	"fmt"
	"net"
	"sort"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/frr"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// UplinkSlotsPerStation is the number of /30 slices reserved per ground
// station or vessel for runtime uplinks. A station never tracks more
// satellites than this at once.
const UplinkSlotsPerStation = 4

// UplinkSlot is one reserved uplink subnet for a ground station or vessel.
type UplinkSlot struct {
	Subnet      string // /30 CIDR
	StationIP   string // first host
	SatelliteIP string // second host
}

// Annotate assigns loopbacks, link subnets, interface names and FRR
// configuration to a built graph. It is a pure function of the graph build
// inputs and the two pools: the same input always produces the same
// annotations, so a controller restarted without state cannot corrupt the
// address plan.
func Annotate(g *Graph, loopbackCIDR, linkCIDR string) error {
	_, loopbackNet, err := net.ParseCIDR(loopbackCIDR)
	if err != nil {
		return fmt.Errorf("%w: loopback pool %q", util.ErrInvalidConfig, loopbackCIDR)
	}
	_, linkNet, err := net.ParseCIDR(linkCIDR)
	if err != nil {
		return fmt.Errorf("%w: link pool %q", util.ErrInvalidConfig, linkCIDR)
	}
	linkBits, _ := linkNet.Mask.Size()
	if linkBits > 30 {
		return fmt.Errorf("%w: link pool %q too small for /30 slices", util.ErrInvalidConfig, linkCIDR)
	}

	// Loopbacks: sequential hosts from the first usable address.
	hostCount := cidr.AddressCount(loopbackNet)
	for i, node := range g.Nodes() {
		if uint64(i+1) >= hostCount-1 {
			return &util.AllocationError{Pool: "loopback", Reason: "no host addresses left"}
		}
		ip, err := cidr.Host(loopbackNet, i+1)
		if err != nil {
			return &util.AllocationError{Pool: "loopback", Reason: err.Error()}
		}
		node.LoopbackIP = ip.String()
		node.InterfaceCount = 0
	}

	// ISL edge subnets: /30 slices consumed in edge insertion order.
	newBits := 30 - linkBits
	slices := 0
	nextSubnet := func() (*net.IPNet, error) {
		sn, err := cidr.Subnet(linkNet, newBits, slices)
		if err != nil {
			return nil, &util.AllocationError{Pool: "link", Reason: err.Error()}
		}
		slices++
		return sn, nil
	}

	for _, edge := range g.Edges() {
		sn, err := nextSubnet()
		if err != nil {
			return err
		}
		host1, err := cidr.Host(sn, 1)
		if err != nil {
			return &util.AllocationError{Pool: "link", Reason: err.Error()}
		}
		host2, err := cidr.Host(sn, 2)
		if err != nil {
			return &util.AllocationError{Pool: "link", Reason: err.Error()}
		}
		edge.Subnet = sn.String()
		edge.IPs[edge.Node1] = host1.String()
		edge.IPs[edge.Node2] = host2.String()

		for _, name := range []string{edge.Node1, edge.Node2} {
			node, _ := g.Node(name)
			node.InterfaceCount++
			edge.Interfaces[name] = fmt.Sprintf("%s-eth%d", name, node.InterfaceCount)
		}
	}

	// Reserved uplink slots per ground station and vessel, drawn from the
	// same pool after the ISL slices so disjointness holds across both.
	stations := append(g.GroundStations(), g.Vessels()...)
	for _, name := range stations {
		node, _ := g.Node(name)
		node.UplinkPool = nil
		for i := 0; i < UplinkSlotsPerStation; i++ {
			sn, err := nextSubnet()
			if err != nil {
				return err
			}
			host1, err := cidr.Host(sn, 1)
			if err != nil {
				return &util.AllocationError{Pool: "link", Reason: err.Error()}
			}
			host2, err := cidr.Host(sn, 2)
			if err != nil {
				return &util.AllocationError{Pool: "link", Reason: err.Error()}
			}
			node.UplinkPool = append(node.UplinkPool, UplinkSlot{
				Subnet:      sn.String(),
				StationIP:   host1.String(),
				SatelliteIP: host2.String(),
			})
		}
	}

	return annotateFRR(g, loopbackCIDR)
}

// annotateFRR generates the routing daemon configuration for every node.
// Satellites sit in the backbone and additionally carry network statements
// for every station's reserved uplink subnets in that station's area, so
// whichever satellite serves an uplink forms the adjacency in the right area.
func annotateFRR(g *Graph, loopbackSupernet string) error {
	stations := append(g.GroundStations(), g.Vessels()...)

	stationNetworks := make([]frr.Network, 0, len(stations)*UplinkSlotsPerStation)
	for _, name := range stations {
		node, _ := g.Node(name)
		area := frr.Area(name, false)
		for _, slot := range node.UplinkPool {
			stationNetworks = append(stationNetworks, frr.Network{Prefix: slot.Subnet, Area: area})
		}
	}

	for _, node := range g.Nodes() {
		data := frr.RouterData{
			Name:     node.Name,
			RouterID: node.LoopbackIP,
		}
		switch node.Type {
		case simapi.TypeSatellite:
			data.Networks = append(data.Networks,
				frr.Network{Prefix: node.LoopbackIP + "/32", Area: frr.BackboneArea})
			for _, edge := range g.AdjacentEdges(node.Name) {
				data.Networks = append(data.Networks,
					frr.Network{Prefix: edge.Subnet, Area: frr.BackboneArea})
			}
			data.Networks = append(data.Networks, stationNetworks...)
		default:
			area := frr.Area(node.Name, false)
			data.Networks = append(data.Networks,
				frr.Network{Prefix: node.LoopbackIP + "/32", Area: area})
			for _, slot := range node.UplinkPool {
				data.Networks = append(data.Networks,
					frr.Network{Prefix: slot.Subnet, Area: area})
			}
			data.Filtered = true
			data.LoopbackSupernet = loopbackSupernet
		}

		files, err := frr.Render(data)
		if err != nil {
			return err
		}
		node.FRRFiles = files
	}
	return nil
}

func sortedGroundNames(m map[string]config.GroundStation) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedVesselNames(m map[string][]config.Waypoint) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
