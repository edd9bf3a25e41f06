package config

import "os"

// Environment variable names shared by the services.
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvControllerURL  = "CONTROLLER_URL"
	EnvBaseSubnet     = "BASE_SUBNET"
	EnvLoopbackSubnet = "LOOPBACK_SUBNET"
	EnvNodeName       = "NODE_NAME"
	EnvNodeType       = "NODE_TYPE"
)

// Address pool defaults. The loopback supernet doubles as the OSPF
// SATELLITE_ONLY prefix range for ground/vessel distribute-lists.
const (
	DefaultBaseSubnet     = "10.15.0.0/16"
	DefaultLoopbackSubnet = "10.1.0.0/16"
	DefaultControllerURL  = "http://controller:8000"
)

// EnvOr returns the environment variable value, or def when unset or empty.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
