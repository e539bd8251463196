package models

import (
	"strings"
	"time"
)

// Coordinates is a WGS84 point in floating-point degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Known event categories that are relevant for push notifications.
// Categories outside this set are rejected at the API boundary.
var KnownCategories = []string{
	"Gospel Concert",
	"Worship Night",
	"Conference",
	"Crusade",
	"Youth Meeting",
	"Bible Study",
	"Community Outreach",
}

// Event is the record that triggers a matching run. It is immutable once
// matching starts.
type Event struct {
	ID          string       `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Category    string       `json:"category" db:"category"`
	CityName    string       `json:"city_name,omitempty" db:"city_name"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	OccursAt    time.Time    `json:"occurs_at" db:"occurs_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// HasLocation reports whether the event carries at least one piece of
// location data. Events without any are un-matchable.
func (e Event) HasLocation() bool {
	return strings.TrimSpace(e.CityName) != "" || e.Coordinates != nil
}

// IsKnownCategory reports whether category is one of the notification-relevant
// tags. Comparison is case-insensitive.
func IsKnownCategory(category string) bool {
	category = strings.TrimSpace(category)
	for _, known := range KnownCategories {
		if strings.EqualFold(known, category) {
			return true
		}
	}
	return false
}
