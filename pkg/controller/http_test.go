package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/satmesh-network/satmesh/pkg/simapi"
)

func newTestAPI(t *testing.T) (*httptest.Server, *Controller) {
	t.Helper()
	g := testGraph(t, 2, 2)
	c, _, _ := newTestController(t, g)
	srv := httptest.NewServer(NewServer(c).Routes())
	t.Cleanup(srv.Close)
	return srv, c
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestPositionsIngestAndReadback(t *testing.T) {
	srv, c := newTestAPI(t)

	data := snapshotAllUp(c.Graph(), 4.0)
	resp := doJSON(t, http.MethodPut, srv.URL+"/positions", data)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /positions status = %d", resp.StatusCode)
	}
	var status simapi.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil || status.Status != "OK" {
		t.Errorf("response = %+v, %v", status, err)
	}

	get, err := http.Get(srv.URL + "/positions")
	if err != nil {
		t.Fatalf("GET /positions: %v", err)
	}
	defer get.Body.Close()
	var back simapi.GraphData
	if err := json.NewDecoder(get.Body).Decode(&back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Satellites) != 4 || len(back.SatelliteLinks) != 4 {
		t.Errorf("readback shape: %d satellites, %d links", len(back.Satellites), len(back.SatelliteLinks))
	}
}

func TestPositionsRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestAPI(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/positions", strings.NewReader("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed snapshot status = %d, want 400", resp.StatusCode)
	}
}

func TestLinkEndpointUnknownLink(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/link", simapi.LinkUpdate{
		Node1Name: "R0_0", Node2Name: "R0_1", Up: false,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown link status = %d, want 400", resp.StatusCode)
	}
}

func TestRegisterAndNodeListing(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/node/register", simapi.NodeInfo{
		Name: "R0_0", Type: simapi.TypeSatellite, Host: "r0_0",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/node/status", simapi.NodeStatus{
		Name: "G_Quito", Type: simapi.TypeGround, Running: true,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status post status = %d", resp.StatusCode)
	}

	get, err := http.Get(srv.URL + "/api/nodes")
	if err != nil {
		t.Fatalf("GET /api/nodes: %v", err)
	}
	defer get.Body.Close()
	var nodes []*ObservedNode
	if err := json.NewDecoder(get.Body).Decode(&nodes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("observed nodes = %d, want 2", len(nodes))
	}
	if nodes[0].Name != "G_Quito" || nodes[1].Name != "R0_0" {
		t.Errorf("node ordering: %s, %s", nodes[0].Name, nodes[1].Name)
	}

	events, err := http.Get(srv.URL + "/api/events?limit=5")
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer events.Body.Close()
	if events.StatusCode != http.StatusOK {
		t.Errorf("events status = %d", events.StatusCode)
	}
}
