package topology

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/simapi"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig(rings, routers int) *config.Network {
	return &config.Network{
		Rings:          rings,
		Routers:        routers,
		GroundStations: true,
		Inclination:    53.9,
		AltitudeKm:     550,
		MinElevation:   15,
		GroundStationData: map[string]config.GroundStation{
			"G_London": {Lat: 51.5, Lon: -0.12},
		},
		VesselData: map[string][]config.Waypoint{
			"V_Atlantic": {{Lat: 45, Lon: -30}, {Lat: 40, Lon: -40}},
		},
	}
}

func TestCreateNetworkTorus(t *testing.T) {
	g, err := CreateNetwork(testConfig(3, 3), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}

	if got := len(g.Satellites()); got != 9 {
		t.Errorf("satellite count = %d, want 9", got)
	}
	edges := g.Edges()
	if len(edges) != 18 {
		t.Errorf("edge count = %d, want 18", len(edges))
	}
	interRing := 0
	for _, e := range edges {
		if e.InterRing {
			interRing++
		}
	}
	if interRing != 9 {
		t.Errorf("inter-ring edge count = %d, want 9", interRing)
	}

	// Each satellite sees two intra-ring and two inter-ring neighbours.
	for _, name := range g.Satellites() {
		adj := g.AdjacentEdges(name)
		if len(adj) != 4 {
			t.Errorf("%s has %d edges, want 4", name, len(adj))
		}
	}
}

func TestCreateNetworkSmallRingCollapse(t *testing.T) {
	// Neighbour relations are sets: in a 2x2 torus the +1/-1 neighbours
	// coincide, so each pair carries a single edge.
	g, err := CreateNetwork(testConfig(2, 2), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	edges := g.Edges()
	if len(edges) != 4 {
		t.Errorf("edge count = %d, want 4", len(edges))
	}
	interRing := 0
	for _, e := range edges {
		if e.InterRing {
			interRing++
		}
	}
	if interRing != 2 {
		t.Errorf("inter-ring edge count = %d, want 2", interRing)
	}
}

func TestCreateNetworkGroundAndVessels(t *testing.T) {
	g, err := CreateNetwork(testConfig(2, 2), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}

	if got := g.GroundStations(); len(got) != 1 || got[0] != "G_London" {
		t.Errorf("ground stations = %v", got)
	}
	if got := g.Vessels(); len(got) != 1 || got[0] != "V_Atlantic" {
		t.Errorf("vessels = %v", got)
	}

	// Stations join via runtime uplinks only; no edges at build time.
	for _, name := range []string{"G_London", "V_Atlantic"} {
		if adj := g.AdjacentEdges(name); len(adj) != 0 {
			t.Errorf("%s has %d static edges, want 0", name, len(adj))
		}
	}

	vessel, _ := g.Node("V_Atlantic")
	if vessel.Lat != 45 || vessel.Lon != -30 {
		t.Errorf("vessel initial position = (%v, %v), want first waypoint", vessel.Lat, vessel.Lon)
	}
}

func TestOrbitalElementSpread(t *testing.T) {
	g, err := CreateNetwork(testConfig(4, 4), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}

	n, _ := g.Node("R1_2")
	if n.Orbit == nil {
		t.Fatalf("satellite missing orbital elements")
	}
	if n.Orbit.RightAscension != 90 {
		t.Errorf("RAAN of ring 1 = %v, want 90", n.Orbit.RightAscension)
	}
	if n.Orbit.MeanAnomaly != 180 {
		t.Errorf("mean anomaly of slot 2 = %v, want 180", n.Orbit.MeanAnomaly)
	}
	if n.Orbit.Inclination != 53.9 || n.Orbit.AltitudeKm != 550 {
		t.Errorf("inclination/altitude not propagated: %+v", n.Orbit)
	}
}

func buildAnnotated(t *testing.T, rings, routers int) *Graph {
	t.Helper()
	g, err := CreateNetwork(testConfig(rings, routers), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	if err := Annotate(g, "10.1.0.0/16", "10.15.0.0/16"); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	return g
}

func TestAnnotateDisjointSubnets(t *testing.T) {
	g := buildAnnotated(t, 3, 3)

	seen := make(map[string]string)
	claim := func(subnet, owner string) {
		if prev, ok := seen[subnet]; ok {
			t.Errorf("subnet %s allocated to both %s and %s", subnet, prev, owner)
		}
		seen[subnet] = owner
	}

	for _, e := range g.Edges() {
		if _, _, err := net.ParseCIDR(e.Subnet); err != nil {
			t.Errorf("edge %s has bad subnet %q", e.Key(), e.Subnet)
		}
		if !strings.HasSuffix(e.Subnet, "/30") {
			t.Errorf("edge %s subnet %s is not a /30", e.Key(), e.Subnet)
		}
		claim(e.Subnet, e.Key())
	}
	for _, name := range append(g.GroundStations(), g.Vessels()...) {
		node, _ := g.Node(name)
		if len(node.UplinkPool) != UplinkSlotsPerStation {
			t.Errorf("%s uplink pool size = %d, want %d", name, len(node.UplinkPool), UplinkSlotsPerStation)
		}
		for _, slot := range node.UplinkPool {
			claim(slot.Subnet, name)
		}
	}

	loopbacks := make(map[string]string)
	for _, node := range g.Nodes() {
		if prev, ok := loopbacks[node.LoopbackIP]; ok {
			t.Errorf("loopback %s issued to both %s and %s", node.LoopbackIP, prev, node.Name)
		}
		loopbacks[node.LoopbackIP] = node.Name
	}
}

func TestAnnotateEdgeMaps(t *testing.T) {
	g := buildAnnotated(t, 3, 3)

	for _, e := range g.Edges() {
		if len(e.IPs) != 2 || len(e.Interfaces) != 2 {
			t.Fatalf("edge %s maps incomplete: ips=%v intfs=%v", e.Key(), e.IPs, e.Interfaces)
		}
		for _, name := range []string{e.Node1, e.Node2} {
			if _, ok := e.IPs[name]; !ok {
				t.Errorf("edge %s missing IP for %s", e.Key(), name)
			}
			intf, ok := e.Interfaces[name]
			if !ok {
				t.Errorf("edge %s missing interface for %s", e.Key(), name)
				continue
			}
			if !strings.HasPrefix(intf, name+"-eth") {
				t.Errorf("interface %s does not follow {node}-eth{k}", intf)
			}
		}
		if e.IPs[e.Node1] == e.IPs[e.Node2] {
			t.Errorf("edge %s has identical host IPs", e.Key())
		}
	}
}

func TestAnnotateDeterministic(t *testing.T) {
	g1 := buildAnnotated(t, 3, 3)
	g2 := buildAnnotated(t, 3, 3)

	opts := cmp.Options{
		cmp.AllowUnexported(Graph{}, Node{}),
		cmpopts.IgnoreFields(Node{}, "Orbit"),
	}
	if diff := cmp.Diff(g1, g2, opts); diff != "" {
		t.Errorf("annotation not deterministic (-first +second):\n%s", diff)
	}

	// Orbital elements separately: identical values expected.
	for _, name := range g1.Satellites() {
		n1, _ := g1.Node(name)
		n2, _ := g2.Node(name)
		if *n1.Orbit != *n2.Orbit {
			t.Errorf("orbit of %s differs between builds", name)
		}
	}
}

func TestAnnotateFRRFiles(t *testing.T) {
	g := buildAnnotated(t, 2, 2)

	sat, _ := g.Node("R0_0")
	if sat.FRRFiles == nil {
		t.Fatalf("satellite has no FRR files")
	}
	ospf := sat.FRRFiles["frr.conf"]
	if !strings.Contains(ospf, "area 0.0.0.0") {
		t.Errorf("satellite config not in backbone:\n%s", ospf)
	}
	if strings.Contains(ospf, "distribute-list") {
		t.Errorf("satellite config must not be filtered")
	}

	ground, _ := g.Node("G_London")
	gospf := ground.FRRFiles["frr.conf"]
	if !strings.Contains(gospf, "distribute-list SATELLITE_ONLY out") {
		t.Errorf("ground config missing distribute-list:\n%s", gospf)
	}
	if strings.Contains(gospf, "area 0.0.0.0\n") {
		t.Errorf("ground networks must not sit in the backbone:\n%s", gospf)
	}
	if !strings.Contains(gospf, "10.1.0.0/16 le 32") {
		t.Errorf("ground prefix-list must permit the loopback supernet:\n%s", gospf)
	}

	// Satellites carry the stations' reserved uplink subnets in the
	// stations' areas so uplink adjacencies form in the right area.
	for _, slot := range ground.UplinkPool {
		if !strings.Contains(ospf, slot.Subnet) {
			t.Errorf("satellite config missing uplink subnet %s", slot.Subnet)
		}
	}
}

func TestEdgeKeyUnordered(t *testing.T) {
	if EdgeKey("R0_1", "R0_0") != EdgeKey("R0_0", "R0_1") {
		t.Errorf("EdgeKey must be order independent")
	}
}

func TestAnnotatePoolExhaustion(t *testing.T) {
	g, err := CreateNetwork(testConfig(4, 4), testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	// A /28 link pool holds only four /30 slices; 32 edges cannot fit.
	if err := Annotate(g, "10.1.0.0/16", "10.15.0.0/28"); err == nil {
		t.Fatalf("Annotate should fail on an exhausted link pool")
	}
}

func TestSatelliteName(t *testing.T) {
	if got := SatelliteName(2, 7); got != "R2_7" {
		t.Errorf("SatelliteName = %s", got)
	}
}

func ExampleEdgeKey() {
	fmt.Println(EdgeKey("R1_0", "R0_0"))
	// Output: R0_0|R1_0
}
