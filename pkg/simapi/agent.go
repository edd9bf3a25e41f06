package simapi

// Node type tags used across the control plane.
const (
	TypeSatellite = "satellite"
	TypeGround    = "ground_station"
	TypeVessel    = "vessel"
)

// AgentPort is the fixed listening port of every node agent.
const AgentPort = 5000

// Result is the envelope every agent RPC returns.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// InterfaceRequest is the body of POST /config/interface.
// Status is optional: empty means leave admin state untouched (up on create).
type InterfaceRequest struct {
	Name      string `json:"name"`
	IP        string `json:"ip,omitempty"`
	PrefixLen int    `json:"prefix_len,omitempty"`
	Status    string `json:"status,omitempty"`
}

// LinkRequest is the body of POST /config/link.
type LinkRequest struct {
	Neighbor  string   `json:"neighbor"`
	LocalIP   string   `json:"local_ip,omitempty"`
	RemoteIP  string   `json:"remote_ip,omitempty"`
	Interface string   `json:"interface,omitempty"`
	Delay     *float64 `json:"delay_ms,omitempty"`
}

// UplinkRequest is the body of POST /config/uplink (ground/vessel agents only).
type UplinkRequest struct {
	Satellite string  `json:"satellite"`
	LocalIP   string  `json:"local_ip"`
	RemoteIP  string  `json:"remote_ip"`
	Interface string  `json:"interface"`
	Distance  float64 `json:"distance_km"`
	Delay     float64 `json:"delay_ms"`
	Default   bool    `json:"default"`
}

// FRRRequest is the body of POST /config/frr.
type FRRRequest struct {
	Files map[string]string `json:"files"`
}

// PositionRequest is the body of POST /config/position.
type PositionRequest struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Alt *float64 `json:"alt,omitempty"`
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Command string `json:"command"`
}

// ExecuteResult is the reply of POST /execute.
type ExecuteResult struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	ReturnCode int    `json:"return_code"`
}
