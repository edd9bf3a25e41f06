package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

func newTestServer(t *testing.T, nodeType string, sys System) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(newTestAgent(nodeType, sys)).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestServerInterfaceEndpoint(t *testing.T) {
	srv := newTestServer(t, simapi.TypeSatellite, &fakeSystem{})

	resp := postJSON(t, srv.URL+"/config/interface", simapi.InterfaceRequest{
		Name: "eth1", IP: "10.15.0.1", PrefixLen: 30,
	})
	defer resp.Body.Close()

	var res simapi.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
}

func TestServerUplinkRejectedForSatellite(t *testing.T) {
	srv := newTestServer(t, simapi.TypeSatellite, &fakeSystem{})

	resp := postJSON(t, srv.URL+"/config/uplink", simapi.UplinkRequest{Satellite: "R0_0"})
	defer resp.Body.Close()

	var res simapi.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Errorf("satellite uplink should fail with an error, got %+v", res)
	}
}

func TestServerExecuteAllowList(t *testing.T) {
	srv := newTestServer(t, simapi.TypeSatellite, &fakeSystem{})

	resp := postJSON(t, srv.URL+"/execute", simapi.ExecuteRequest{Command: "rm -rf /"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("disallowed command status = %d, want 403", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/execute", simapi.ExecuteRequest{Command: ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty command status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/execute", simapi.ExecuteRequest{Command: "ping 10.1.0.1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("allowed command status = %d", resp.StatusCode)
	}
	var res simapi.ExecuteResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Output != "output" {
		t.Errorf("execute result = %+v", res)
	}
}

func TestServerStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, simapi.TypeGround, &fakeSystem{})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var st simapi.NodeStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Name != "N_test" || st.Type != simapi.TypeGround {
		t.Errorf("status = %+v", st)
	}
}

func TestClientAgainstServer(t *testing.T) {
	sys := &fakeSystem{}
	srv := newTestServer(t, simapi.TypeSatellite, sys)

	client := NewClientWithResolver(func(node string) string { return srv.URL })
	ctx := context.Background()

	err := client.ConfigureInterface(ctx, "R0_0", simapi.InterfaceRequest{
		Name: "eth1", IP: "10.15.0.1", PrefixLen: 30,
	})
	if err != nil {
		t.Fatalf("ConfigureInterface: %v", err)
	}

	delay := 4.2
	err = client.ConfigureLink(ctx, "R0_0", simapi.LinkRequest{
		Neighbor: "R0_1", LocalIP: "10.15.0.1", RemoteIP: "10.15.0.2",
		Interface: "eth1", Delay: &delay,
	})
	if err != nil {
		t.Fatalf("ConfigureLink: %v", err)
	}

	// An agent-side rejection surfaces as ErrAgentRejected.
	err = client.ConfigureUplink(ctx, "R0_0", simapi.UplinkRequest{Satellite: "R1_0"})
	if !errors.Is(err, util.ErrAgentRejected) {
		t.Errorf("rejection error = %v, want ErrAgentRejected", err)
	}
	var rpcErr *util.RPCError
	if !errors.As(err, &rpcErr) {
		t.Errorf("error should carry RPC context")
	}
}

func TestClientConnectionRefused(t *testing.T) {
	client := NewClientWithResolver(func(node string) string {
		return "http://127.0.0.1:1" // nothing listens here
	})
	err := client.ConfigureInterface(context.Background(), "R0_0", simapi.InterfaceRequest{Name: "eth1"})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var rpcErr *util.RPCError
	if !errors.As(err, &rpcErr) {
		t.Errorf("transport failure should be an RPCError, got %v", err)
	}
}
