package dynamics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/satmesh-network/satmesh/pkg/config"
	"github.com/satmesh-network/satmesh/pkg/orbit"
	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/topology"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testGraph(t *testing.T, rings, routers int) *topology.Graph {
	t.Helper()
	cfg := &config.Network{
		Rings:          rings,
		Routers:        routers,
		GroundStations: true,
		Inclination:    53.9,
		AltitudeKm:     550,
		MinElevation:   15,
		GroundStationData: map[string]config.GroundStation{
			"G_Quito": {Lat: 0, Lon: 0},
		},
		VesselData: map[string][]config.Waypoint{
			"V_Atlantic": {{Lat: 10, Lon: -30}, {Lat: 10, Lon: -25}},
		},
	}
	g, err := topology.CreateNetwork(cfg, testEpoch)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	return g
}

func TestVesselSingleWaypointStatic(t *testing.T) {
	v := NewVessel("V_X", []Waypoint{{Lat: 5, Lon: 5}})
	for i := 0; i < 10; i++ {
		v.Advance()
	}
	if v.Lat != 5 || v.Lon != 5 {
		t.Errorf("single-waypoint vessel moved to (%v, %v)", v.Lat, v.Lon)
	}
}

func TestVesselStepSize(t *testing.T) {
	v := NewVessel("V_X", []Waypoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}})
	v.Advance()
	if math.Abs(v.Lon-Speed) > 1e-9 || v.Lat != 0 {
		t.Errorf("after one step position = (%v, %v), want (0, %v)", v.Lat, v.Lon, Speed)
	}

	// Diagonal movement is normalized to one step of length Speed.
	d := NewVessel("V_Y", []Waypoint{{Lat: 0, Lon: 0}, {Lat: 30, Lon: 40}})
	d.Advance()
	if step := math.Hypot(d.Lat, d.Lon); math.Abs(step-Speed) > 1e-9 {
		t.Errorf("diagonal step length = %v, want %v", step, Speed)
	}
}

func TestVesselSnapAndReverse(t *testing.T) {
	v := NewVessel("V_X", []Waypoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2.5}})

	v.Advance() // lon 1.0
	v.Advance() // lon 2.0
	v.Advance() // within one step: snap to endpoint, reverse
	if v.Lon != 2.5 || v.Lat != 0 {
		t.Fatalf("vessel should have snapped to endpoint, at (%v, %v)", v.Lat, v.Lon)
	}
	if v.Forward() {
		t.Errorf("direction should be reversed at the far endpoint")
	}

	// One step from the endpoint moves Speed back toward the interior.
	v.Advance()
	if math.Abs(v.Lon-1.5) > 1e-9 {
		t.Errorf("after reversal step lon = %v, want 1.5", v.Lon)
	}

	// Ping-pong all the way back to the origin and out again.
	v.Advance() // 0.5
	v.Advance() // snap to 0, forward again
	if v.Lon != 0 || !v.Forward() {
		t.Errorf("vessel should have snapped to origin and reversed, lon=%v forward=%v", v.Lon, v.Forward())
	}
}

func TestInterPlaneUpStrictCutoff(t *testing.T) {
	tests := []struct {
		name        string
		lat         float64
		inclination float64
		want        bool
	}{
		{"equator", 0, 53.9, true},
		{"just inside cutoff", 51.89, 53.9, true},
		{"exactly at cutoff", 51.9, 53.9, false},
		{"beyond cutoff", 52.0, 53.9, false},
		{"southern cutoff", -51.9, 53.9, false},
		{"southern inside", -51.89, 53.9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interPlaneUp(tt.lat, tt.inclination); got != tt.want {
				t.Errorf("interPlaneUp(%v, %v) = %v, want %v", tt.lat, tt.inclination, got, tt.want)
			}
		})
	}
}

func TestAboveMinElevationStrict(t *testing.T) {
	if aboveMinElevation(15.0, 15.0) {
		t.Errorf("elevation exactly at the minimum must not qualify")
	}
	if !aboveMinElevation(15.01, 15.0) {
		t.Errorf("elevation above the minimum must qualify")
	}
}

func TestNearbyFilter(t *testing.T) {
	if !nearby(0, 0, 10, -10) {
		t.Errorf("satellite within 20 degrees should pass the coarse filter")
	}
	if nearby(0, 0, 25, 0) {
		t.Errorf("satellite 25 degrees away in latitude should not pass")
	}
	if nearby(0, 0, 0, 20) {
		t.Errorf("delta of exactly 20 degrees should not pass")
	}
}

func TestSatelliteLinksForcedBlackout(t *testing.T) {
	g := testGraph(t, 3, 3)
	e, err := New(g, 15)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Place every satellite at benign coordinates, then push one beyond the
	// inter-plane cutoff.
	for i, sat := range e.satellites {
		sat.lat = float64(i)
		sat.lon = float64(i * 10)
		sat.height = 550
	}
	blackout := e.satByName["R1_1"]
	blackout.lat = 52.0

	links := e.satelliteLinks()
	if len(links) != 18 {
		t.Fatalf("link count = %d, want 18", len(links))
	}

	for _, l := range links {
		edge, ok := g.Edge(l.Node1Name, l.Node2Name)
		if !ok {
			t.Fatalf("snapshot link %s-%s not in graph", l.Node1Name, l.Node2Name)
		}
		touchesBlackout := l.Node1Name == "R1_1" || l.Node2Name == "R1_1"
		switch {
		case edge.InterRing && touchesBlackout:
			if l.Up {
				t.Errorf("inter-ring link %s-%s should be down", l.Node1Name, l.Node2Name)
			}
		default:
			if !l.Up {
				t.Errorf("link %s-%s should be up", l.Node1Name, l.Node2Name)
			}
		}
		if l.Delay < 1.0 {
			t.Errorf("delay %v below the processing floor", l.Delay)
		}
	}
}

func TestSatelliteLinkDelayFormula(t *testing.T) {
	g := testGraph(t, 2, 2)
	e, err := New(g, 15)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, sat := range e.satellites {
		sat.lat = 0
		sat.lon = 0
		sat.height = 550
	}
	e.satByName["R0_1"].lon = 90

	links := e.satelliteLinks()
	for _, l := range links {
		if l.Node1Name == "R0_0" && l.Node2Name == "R0_1" {
			d := orbit.DistanceKm(orbit.CartesianKm(0, 0, 550), orbit.CartesianKm(0, 90, 550))
			want := orbit.LinkDelayMs(d)
			if math.Abs(l.Delay-want) > 1e-3 {
				t.Errorf("delay = %v, want %v", l.Delay, want)
			}
			return
		}
	}
	t.Fatalf("edge R0_0-R0_1 not found in snapshot")
}

func TestEvaluateSnapshotShape(t *testing.T) {
	g := testGraph(t, 3, 3)
	e, err := New(g, 15)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := e.Evaluate(testEpoch.Add(10 * time.Second))

	if len(data.Satellites) != 9 {
		t.Errorf("satellite positions = %d, want 9", len(data.Satellites))
	}
	if len(data.GroundStations) != 1 || data.GroundStations[0].Name != "G_Quito" {
		t.Errorf("ground stations = %+v", data.GroundStations)
	}
	if len(data.Vessels) != 1 {
		t.Errorf("vessels = %+v", data.Vessels)
	}
	if len(data.SatelliteLinks) != 18 {
		t.Errorf("links = %d, want 18", len(data.SatelliteLinks))
	}

	// Link state must agree with the per-satellite inter-plane flags.
	for _, l := range data.SatelliteLinks {
		edge, _ := g.Edge(l.Node1Name, l.Node2Name)
		wantUp := true
		if edge.InterRing {
			wantUp = e.satByName[l.Node1Name].interPlane && e.satByName[l.Node2Name].interPlane
		}
		if l.Up != wantUp {
			t.Errorf("link %s-%s up=%v inconsistent with inter-plane flags", l.Node1Name, l.Node2Name, l.Up)
		}
		if l.Delay <= 1.0 || l.Delay > 50.0 {
			t.Errorf("link %s-%s delay %v outside (1, 50] ms", l.Node1Name, l.Node2Name, l.Delay)
		}
	}

	// Candidate uplinks, when present, must satisfy the delay formula.
	for _, ul := range data.GroundUplinks {
		for _, u := range ul.Uplinks {
			if u.Delay < 1.0 {
				t.Errorf("uplink %s->%s delay %v below floor", ul.GroundNode, u.SatNode, u.Delay)
			}
		}
	}

	// Vessel advanced one step along its eastbound leg.
	if math.Abs(data.Vessels[0].Lon-(-29)) > 1e-9 {
		t.Errorf("vessel lon = %v, want -29", data.Vessels[0].Lon)
	}
}

type recordingSink struct {
	calls int
	fail  bool
	done  chan struct{}
}

func (s *recordingSink) PostSnapshot(ctx context.Context, data *simapi.GraphData) error {
	s.calls++
	if s.calls == 2 {
		close(s.done)
	}
	if s.fail {
		return errors.New("controller unavailable")
	}
	return nil
}

func TestRunnerTicksAndDropsFailedDelivery(t *testing.T) {
	g := testGraph(t, 2, 2)
	e, err := New(g, 15)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sink := &recordingSink{fail: true, done: make(chan struct{})}
	r := NewRunner(e, sink, time.Second)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sink.done
		cancel()
	}()

	err = r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if sink.calls < 2 {
		t.Errorf("sink called %d times, want at least 2 despite failures", sink.calls)
	}
}
