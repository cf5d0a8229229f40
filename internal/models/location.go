package models

import (
	"time"
)

// Location is a GeoJSON point with an optional human-readable address.
// Coordinates are stored [longitude, latitude] so MongoDB 2dsphere
// indexes work on the field directly.
type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address" bson:"address"`
	Timestamp   time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

func NewLocation(longitude, latitude float64, address string) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
		Address:     address,
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) Valid() bool {
	if len(l.Coordinates) != 2 {
		return false
	}
	lng, lat := l.Coordinates[0], l.Coordinates[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
