package frr

import (
	"strings"
	"testing"
)

func TestAreaBackbone(t *testing.T) {
	if got := Area("R0_1", true); got != BackboneArea {
		t.Errorf("satellite area = %s, want %s", got, BackboneArea)
	}
}

func TestAreaGroundStable(t *testing.T) {
	a1 := Area("G_London", false)
	a2 := Area("G_London", false)
	if a1 != a2 {
		t.Errorf("area derivation not stable: %s vs %s", a1, a2)
	}
	if a1 == BackboneArea {
		t.Errorf("ground station must not land in the backbone area")
	}
	if !strings.HasPrefix(a1, "0.0.0.") {
		t.Errorf("unexpected area format: %s", a1)
	}
}

func TestAreaDistinctNodes(t *testing.T) {
	// Not guaranteed collision-free, but these two must differ for the
	// isolation tests to be meaningful.
	if Area("G_London", false) == Area("V_Atlantic", false) {
		t.Errorf("expected distinct areas for G_London and V_Atlantic")
	}
}

func TestRenderSatellite(t *testing.T) {
	files, err := Render(RouterData{
		Name:     "R0_0",
		RouterID: "10.1.0.1",
		Networks: []Network{
			{Prefix: "10.1.0.1/32", Area: BackboneArea},
			{Prefix: "10.15.0.0/30", Area: BackboneArea},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	ospf := files[FileOSPF]
	for _, want := range []string{
		"hostname R0_0",
		"ospf router-id 10.1.0.1",
		"network 10.1.0.1/32 area 0.0.0.0",
		"network 10.15.0.0/30 area 0.0.0.0",
	} {
		if !strings.Contains(ospf, want) {
			t.Errorf("ospf config missing %q:\n%s", want, ospf)
		}
	}
	if strings.Contains(ospf, "SATELLITE_ONLY") {
		t.Errorf("satellite config must not carry the distribute-list:\n%s", ospf)
	}
	if !strings.Contains(files[FileDaemons], "ospfd=yes") {
		t.Errorf("daemons config missing ospfd=yes")
	}
	if !strings.Contains(files[FileVtysh], "hostname R0_0") {
		t.Errorf("vtysh config missing hostname")
	}
}

func TestRenderGroundFiltered(t *testing.T) {
	area := Area("G_London", false)
	files, err := Render(RouterData{
		Name:     "G_London",
		RouterID: "10.1.0.9",
		Networks: []Network{
			{Prefix: "10.1.0.9/32", Area: area},
		},
		Filtered:         true,
		LoopbackSupernet: "10.1.0.0/16",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	ospf := files[FileOSPF]
	if !strings.Contains(ospf, "distribute-list SATELLITE_ONLY out") {
		t.Errorf("ground config missing distribute-list:\n%s", ospf)
	}
	if !strings.Contains(ospf, "ip prefix-list SATELLITE_ONLY permit 10.1.0.0/16 le 32") {
		t.Errorf("ground config missing prefix-list:\n%s", ospf)
	}
	if !strings.Contains(ospf, "area "+area) {
		t.Errorf("ground config not in its own area %s:\n%s", area, ospf)
	}
}
