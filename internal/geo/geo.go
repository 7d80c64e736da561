// Package geo holds the distance and scoring math for a round, plus the
// GeoJSON overlay drawn on the result map.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	constants "github.com/CodeAndHammer/upjguesser/internal/constants"
)

// Point builds an orb.Point from latitude and longitude in degrees.
// orb stores points as (lon, lat).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula on a sphere of radius constants.EarthRadius.
// Inputs are not range checked.
func Distance(a, b orb.Point) float64 {
	φ1 := toRadians(a.Lat())
	φ2 := toRadians(b.Lat())
	Δφ := toRadians(b.Lat() - a.Lat())
	Δλ := toRadians(b.Lon() - a.Lon())

	sinΔφ := math.Sin(Δφ / 2)
	sinΔλ := math.Sin(Δλ / 2)

	h := sinΔφ*sinΔφ + math.Cos(φ1)*math.Cos(φ2)*sinΔλ*sinΔλ
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return constants.EarthRadius * c
}

// Score maps a distance in meters to round points: max(0, round(1000 - 5d)).
func Score(distanceMeters float64) int {
	raw := float64(constants.MaxRoundPoints) - distanceMeters*constants.PointsPerMeter
	return int(math.Round(math.Max(0, raw)))
}

// Outcome is the scored result of one guess. Distance is nil when no guess
// was made, which is not the same as a guess that scored zero.
type Outcome struct {
	Distance *float64
	Points   int
}

// Evaluate scores guess against target. A nil guess yields zero points and
// no distance.
func Evaluate(guess *orb.Point, target orb.Point) Outcome {
	if guess == nil {
		return Outcome{}
	}
	d := Distance(*guess, target)
	return Outcome{Distance: &d, Points: Score(d)}
}

const (
	RoleActual = "actual"
	RoleGuess  = "guess"
	RoleLine   = "line"
)

// Overlay builds the result-map markers: the actual location, the guess if
// any, and a line joining them.
func Overlay(actual orb.Point, name string, guess *orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	actualFeature := geojson.NewFeature(actual)
	actualFeature.Properties["role"] = RoleActual
	actualFeature.Properties["popup"] = "Actual location: " + name
	fc.Append(actualFeature)

	if guess == nil {
		return fc
	}

	guessFeature := geojson.NewFeature(*guess)
	guessFeature.Properties["role"] = RoleGuess
	guessFeature.Properties["popup"] = "Your guess"
	fc.Append(guessFeature)

	line := geojson.NewFeature(orb.LineString{*guess, actual})
	line.Properties["role"] = RoleLine
	line.Properties["color"] = "blue"
	line.Properties["weight"] = 3
	line.Properties["opacity"] = 0.7
	line.Properties["dashArray"] = "10, 10"
	fc.Append(line)

	return fc
}

// GuessOverlay is the guessing-phase overlay: only the pending guess marker.
func GuessOverlay(guess *orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if guess == nil {
		return fc
	}
	f := geojson.NewFeature(*guess)
	f.Properties["role"] = RoleGuess
	f.Properties["popup"] = "Your guess"
	fc.Append(f)
	return fc
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
