// Package orbit holds the orbital element model, synthetic TLE generation and
// SGP4-based position propagation for the emulated constellation.
package orbit

import (
	"fmt"
	"math"
	"time"
)

const (
	// EarthRadiusKm is the equatorial Earth radius used for semi-major axis
	// and Cartesian link geometry.
	EarthRadiusKm = 6378.0

	// EarthMu is the standard gravitational parameter for Earth in km^3/s^2.
	EarthMu = 398600.4418

	// SpeedOfLightKmS is the propagation speed used for link delays.
	SpeedOfLightKmS = 299792.458

	// ProcessingDelayMs is the fixed per-link equipment delay.
	ProcessingDelayMs = 1.0
)

// Elements are the orbital elements stored per satellite. Circular orbits
// only: eccentricity and argument of perigee are fixed at zero.
type Elements struct {
	Inclination    float64   // degrees
	AltitudeKm     float64   // above the equatorial radius
	RightAscension float64   // RAAN, degrees
	MeanAnomaly    float64   // degrees at Epoch
	Epoch          time.Time // reference epoch, UTC
}

// MeanMotion returns revolutions per day for the circular orbit.
func (e Elements) MeanMotion() float64 {
	a := EarthRadiusKm + e.AltitudeKm
	period := 2 * math.Pi * math.Sqrt(a*a*a/EarthMu) // seconds
	return 86400.0 / period
}

// TLE renders the elements as a synthetic two-line element set suitable for
// SGP4 propagation. catalogNum distinguishes satellites within the set.
func (e Elements) TLE(catalogNum int) (string, string) {
	epoch := e.Epoch.UTC()
	year := epoch.Year() % 100
	dayOfYear := float64(epoch.YearDay()) +
		(float64(epoch.Hour())*3600+float64(epoch.Minute())*60+
			float64(epoch.Second()))/86400.0

	line1 := fmt.Sprintf("1 %05dU %-8s %02d%012.8f  .00000000  00000-0  00000-0 0 %4d",
		catalogNum, "00001A", year, dayOfYear, 999)
	line1 += checksum(line1)

	line2 := fmt.Sprintf("2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d",
		catalogNum, e.Inclination, e.RightAscension, 0, 0.0, e.MeanAnomaly,
		e.MeanMotion(), 0)
	line2 += checksum(line2)

	return line1, line2
}

// checksum is the TLE line checksum: sum of digits with '-' counting as 1,
// modulo 10.
func checksum(line string) string {
	sum := 0
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return fmt.Sprintf("%d", sum%10)
}
