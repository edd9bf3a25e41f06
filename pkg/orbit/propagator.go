package orbit

import (
	"fmt"
	"time"

	gosat "github.com/joshuaferrara/go-satellite"
)

// SubPoint is a satellite's ground track point at an instant.
type SubPoint struct {
	Lat   float64 // degrees
	Lon   float64 // degrees, normalized to [-180, 180)
	AltKm float64
}

// LookAngles is the topocentric view of a satellite from a ground position.
type LookAngles struct {
	ElevationDeg float64
	AzimuthDeg   float64
	RangeKm      float64
}

// Propagator propagates one satellite from its synthetic TLE.
type Propagator struct {
	Name string
	sat  gosat.Satellite
}

// NewPropagator builds a propagator from stored elements.
func NewPropagator(name string, catalogNum int, el Elements) (*Propagator, error) {
	line1, line2 := el.TLE(catalogNum)
	if len(line1) != 69 || len(line2) != 69 {
		return nil, fmt.Errorf("generated malformed TLE for %s", name)
	}
	sat := gosat.TLEToSat(line1, line2, "wgs84")
	return &Propagator{Name: name, sat: sat}, nil
}

// SubPointAt returns the sub-satellite point and altitude at t.
func (p *Propagator) SubPointAt(t time.Time) SubPoint {
	t = t.UTC()
	pos, _ := gosat.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
	gmst := gosat.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
	altKm, _, llRad := gosat.ECIToLLA(pos, gmst)
	ll := gosat.LatLongDeg(llRad)
	return SubPoint{Lat: ll.Latitude, Lon: normalizeLon(ll.Longitude), AltKm: altKm}
}

// LookAnglesFrom returns elevation, azimuth and slant range of the satellite
// as seen from a ground position at sea level.
func (p *Propagator) LookAnglesFrom(t time.Time, latDeg, lonDeg float64) LookAngles {
	t = t.UTC()
	pos, _ := gosat.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
	jday := gosat.JDay(t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
	obs := gosat.LatLong{
		Latitude:  latDeg * gosat.DEG2RAD,
		Longitude: lonDeg * gosat.DEG2RAD,
	}
	la := gosat.ECIToLookAngles(pos, obs, 0, jday)
	return LookAngles{
		ElevationDeg: la.El * gosat.RAD2DEG,
		AzimuthDeg:   la.Az * gosat.RAD2DEG,
		RangeKm:      la.Rg,
	}
}

func normalizeLon(lon float64) float64 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
