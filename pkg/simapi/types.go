// Package simapi defines the JSON wire types exchanged between the dynamics
// engine, the topology controller, and the node agents.
package simapi

// SatellitePosition is a satellite's sub-satellite point at a tick.
type SatellitePosition struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"`
}

// GroundStationPosition is a ground station's fixed position.
type GroundStationPosition struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// VesselPosition is a vessel's position at a tick.
type VesselPosition struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Link is the desired state of one inter-satellite link.
type Link struct {
	Node1Name string  `json:"node1_name"`
	Node2Name string  `json:"node2_name"`
	Up        bool    `json:"up"`
	Delay     float64 `json:"delay"`
}

// UpLink is one candidate uplink from a ground station or vessel to a satellite.
type UpLink struct {
	SatNode  string  `json:"sat_node"`
	Distance int     `json:"distance"`
	Delay    float64 `json:"delay"`
}

// UpLinks groups the candidate uplinks of one ground station or vessel.
type UpLinks struct {
	GroundNode string   `json:"ground_node"`
	Uplinks    []UpLink `json:"uplinks"`
}

// GraphData is the full snapshot the dynamics engine posts each tick.
type GraphData struct {
	Satellites     []SatellitePosition     `json:"satellites"`
	GroundStations []GroundStationPosition `json:"ground_stations"`
	Vessels        []VesselPosition        `json:"vessels"`
	SatelliteLinks []Link                  `json:"satellite_links"`
	GroundUplinks  []UpLinks               `json:"ground_uplinks"`
}

// LinkUpdate is the body of PUT /link, a manual link-state override.
type LinkUpdate struct {
	Node1Name string   `json:"node1_name"`
	Node2Name string   `json:"node2_name"`
	Up        bool     `json:"up"`
	Delay     *float64 `json:"delay,omitempty"`
}

// NodeInfo is the body of POST /api/node/register.
type NodeInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Host string `json:"host"`
}

// NodeStatus is the full status document an agent posts periodically.
type NodeStatus struct {
	Name       string                     `json:"name"`
	Type       string                     `json:"type"`
	Interfaces map[string]InterfaceStatus `json:"interfaces"`
	Links      map[string]LinkStatus      `json:"links"`
	Uplinks    []UplinkStatus             `json:"uplinks,omitempty"`
	Position   Position                   `json:"position"`
	Running    bool                       `json:"running"`
}

// InterfaceStatus mirrors one configured interface on a node.
type InterfaceStatus struct {
	IP        string `json:"ip"`
	PrefixLen int    `json:"prefix_len"`
	Status    string `json:"status"`
}

// LinkStatus mirrors one configured link on a node, keyed by neighbor name.
type LinkStatus struct {
	LocalIP   string  `json:"local_ip"`
	RemoteIP  string  `json:"remote_ip"`
	Interface string  `json:"interface"`
	Status    string  `json:"status"`
	Delay     float64 `json:"delay"`
}

// UplinkStatus mirrors one configured uplink on a ground station or vessel.
type UplinkStatus struct {
	Satellite string  `json:"satellite"`
	LocalIP   string  `json:"local_ip"`
	RemoteIP  string  `json:"remote_ip"`
	Interface string  `json:"interface"`
	Distance  float64 `json:"distance"`
	Delay     float64 `json:"delay"`
	Default   bool    `json:"default"`
}

// Position is a node's last known geographic position.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt,omitempty"`
}

// StatusResponse is the generic {status: "OK"} controller reply.
type StatusResponse struct {
	Status string `json:"status"`
}
