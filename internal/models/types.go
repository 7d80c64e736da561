package models

import (
	"github.com/paulmach/orb"
)

type Location struct {
	ID    int     `json:"id"`
	Image string  `json:"image"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Name  string  `json:"name"`
}

func (l Location) Position() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

type LocationList struct {
	Locations []Location `json:"locations"`
}

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Score int    `json:"score"`
}

// RoundResult is fixed once a round is submitted or times out.
type RoundResult struct {
	Round        int        `json:"round"`
	LocationID   int        `json:"locationId"`
	LocationName string     `json:"locationName"`
	Actual       orb.Point  `json:"-"`
	Guess        *orb.Point `json:"-"`
	Distance     *float64   `json:"distanceMeters"`
	Points       int        `json:"points"`
}

type MapView struct {
	Center  orb.Point `json:"center"`
	Bounds  orb.Bound `json:"bounds"`
	Zoom    int       `json:"zoom"`
	MinZoom int       `json:"minZoom"`
	MaxZoom int       `json:"maxZoom"`
}
