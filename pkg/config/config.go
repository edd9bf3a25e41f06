// Package config loads and renders the emulation network configuration.
//
// The on-disk format is INI with sections [network], [constellation],
// [physical], [ground_stations] and [vessels]. Ground stations are
// "name = lat,lon" lines; vessels carry semicolon-separated waypoint
// polylines "name = lat,lon;lat,lon;...".
package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/satmesh-network/satmesh/pkg/util"
)

// Defaults applied when a key is absent.
const (
	DefaultRings        = 4
	DefaultRouters      = 4
	DefaultInclination  = 53.9
	DefaultAltitudeKm   = 550
	DefaultMinElevation = 15
)

// Waypoint is one vertex of a vessel's patrol polyline.
type Waypoint struct {
	Lat float64
	Lon float64
}

// GroundStation is a fixed ground position.
type GroundStation struct {
	Lat float64
	Lon float64
}

// Network is the parsed emulation configuration.
type Network struct {
	Rings          int
	Routers        int
	GroundStations bool

	Inclination float64
	AltitudeKm  float64

	MinElevation float64

	GroundStationData map[string]GroundStation
	VesselData        map[string][]Waypoint
}

var loadOptions = ini.LoadOptions{IgnoreInlineComment: true}

// Load reads and parses the configuration file at path.
func Load(path string) (*Network, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return fromFile(f)
}

// Parse parses configuration from raw INI bytes.
func Parse(data []byte) (*Network, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Network, error) {
	net := &Network{
		GroundStationData: make(map[string]GroundStation),
		VesselData:        make(map[string][]Waypoint),
	}

	nw := f.Section("network")
	net.Rings = nw.Key("rings").MustInt(DefaultRings)
	net.Routers = nw.Key("routers").MustInt(DefaultRouters)
	net.GroundStations = nw.Key("ground_stations").MustBool(false)

	con := f.Section("constellation")
	net.Inclination = con.Key("inclination").MustFloat64(DefaultInclination)
	net.AltitudeKm = con.Key("altitude").MustFloat64(DefaultAltitudeKm)

	phys := f.Section("physical")
	net.MinElevation = phys.Key("min_elevation").MustFloat64(DefaultMinElevation)

	if net.GroundStations && f.HasSection("ground_stations") {
		for _, key := range f.Section("ground_stations").Keys() {
			lat, lon, err := parseLatLon(key.Value())
			if err != nil {
				return nil, fmt.Errorf("ground station %s: %w", key.Name(), err)
			}
			net.GroundStationData[key.Name()] = GroundStation{Lat: lat, Lon: lon}
		}
	}

	if f.HasSection("vessels") {
		for _, key := range f.Section("vessels").Keys() {
			var waypoints []Waypoint
			for _, part := range strings.Split(key.Value(), ";") {
				lat, lon, err := parseLatLon(part)
				if err != nil {
					return nil, fmt.Errorf("vessel %s: %w", key.Name(), err)
				}
				waypoints = append(waypoints, Waypoint{Lat: lat, Lon: lon})
			}
			net.VesselData[key.Name()] = waypoints
		}
	}

	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}

func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: want \"lat,lon\", got %q", util.ErrInvalidConfig, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad latitude %q", util.ErrInvalidConfig, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad longitude %q", util.ErrInvalidConfig, parts[1])
	}
	return lat, lon, nil
}

// Validate checks the configuration for values the emulation cannot run with.
func (n *Network) Validate() error {
	if n.Rings < 1 || n.Routers < 1 {
		return fmt.Errorf("%w: rings and routers must be >= 1", util.ErrInvalidConfig)
	}
	if n.Inclination <= 0 || n.Inclination > 90 {
		return fmt.Errorf("%w: inclination %.2f out of range (0, 90]", util.ErrInvalidConfig, n.Inclination)
	}
	if n.AltitudeKm <= 0 {
		return fmt.Errorf("%w: altitude must be positive", util.ErrInvalidConfig)
	}
	if n.MinElevation < 0 || n.MinElevation >= 90 {
		return fmt.Errorf("%w: min_elevation %.2f out of range [0, 90)", util.ErrInvalidConfig, n.MinElevation)
	}
	for name, pos := range n.GroundStationData {
		if err := checkLatLon(pos.Lat, pos.Lon); err != nil {
			return fmt.Errorf("ground station %s: %w", name, err)
		}
	}
	for name, waypoints := range n.VesselData {
		if len(waypoints) == 0 {
			return fmt.Errorf("%w: vessel %s has no waypoints", util.ErrInvalidConfig, name)
		}
		for _, wp := range waypoints {
			if err := checkLatLon(wp.Lat, wp.Lon); err != nil {
				return fmt.Errorf("vessel %s: %w", name, err)
			}
		}
	}
	return nil
}

func checkLatLon(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %.4f out of range", util.ErrInvalidConfig, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %.4f out of range", util.ErrInvalidConfig, lon)
	}
	return nil
}

// Render serialises the configuration back to INI. Parse(Render(n)) yields a
// configuration equal to n.
func (n *Network) Render() ([]byte, error) {
	f := ini.Empty()

	nw, err := f.NewSection("network")
	if err != nil {
		return nil, err
	}
	nw.Key("rings").SetValue(strconv.Itoa(n.Rings))
	nw.Key("routers").SetValue(strconv.Itoa(n.Routers))
	nw.Key("ground_stations").SetValue(strconv.FormatBool(n.GroundStations))

	con, err := f.NewSection("constellation")
	if err != nil {
		return nil, err
	}
	con.Key("inclination").SetValue(formatFloat(n.Inclination))
	con.Key("altitude").SetValue(formatFloat(n.AltitudeKm))

	phys, err := f.NewSection("physical")
	if err != nil {
		return nil, err
	}
	phys.Key("min_elevation").SetValue(formatFloat(n.MinElevation))

	if len(n.GroundStationData) > 0 {
		gs, err := f.NewSection("ground_stations")
		if err != nil {
			return nil, err
		}
		for _, name := range sortedKeys(n.GroundStationData) {
			pos := n.GroundStationData[name]
			gs.Key(name).SetValue(formatFloat(pos.Lat) + "," + formatFloat(pos.Lon))
		}
	}

	if len(n.VesselData) > 0 {
		vs, err := f.NewSection("vessels")
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(n.VesselData))
		for name := range n.VesselData {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts := make([]string, 0, len(n.VesselData[name]))
			for _, wp := range n.VesselData[name] {
				parts = append(parts, formatFloat(wp.Lat)+","+formatFloat(wp.Lon))
			}
			vs.Key(name).SetValue(strings.Join(parts, ";"))
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys(m map[string]GroundStation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
