package geo

import (
	"math"
	"testing"

	"github.com/eventradar/notify-engine/internal/models"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
	}{
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantKm: 343.556,
		},
		{
			name: "London to Manchester",
			lat1: 51.5034, lon1: -0.1276,
			lat2: 53.4808, lon2: -2.2426,
			wantKm: 262.366,
		},
		{
			name: "New York to Los Angeles",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 34.0522, lon2: -118.2437,
			wantKm: 3935.746,
		},
		{
			name: "Lagos to Ibadan",
			lat1: 6.5244, lon1: 3.3792,
			lat2: 7.3775, lon2: 3.9470,
			wantKm: 113.694,
		},
		{
			name: "one degree of longitude at the equator",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 1,
			wantKm: 111.195,
		},
		{
			name: "identical points",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 51.5074, lon2: -0.1278,
			wantKm: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			tolerance := tt.wantKm * 0.001 // 0.1%
			if tolerance == 0 {
				tolerance = 1e-9
			}
			if math.Abs(got-tt.wantKm) > tolerance {
				t.Errorf("DistanceKm() = %.3f, want %.3f (±%.3f)", got, tt.wantKm, tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	there := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
	back := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
	if math.Abs(there-back) > 1e-9 {
		t.Errorf("distance not symmetric: %.9f vs %.9f", there, back)
	}
}

func TestBetween(t *testing.T) {
	london := &models.Coordinates{Latitude: 51.5074, Longitude: -0.1278}
	paris := &models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

	tests := []struct {
		name   string
		a, b   *models.Coordinates
		wantOK bool
	}{
		{name: "both present", a: london, b: paris, wantOK: true},
		{name: "first absent", a: nil, b: paris, wantOK: false},
		{name: "second absent", a: london, b: nil, wantOK: false},
		{name: "both absent", a: nil, b: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, ok := Between(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("Between() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok && km != 0 {
				t.Errorf("Between() km = %v for unknown distance, want 0", km)
			}
		})
	}
}
