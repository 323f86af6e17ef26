package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{"same point", 19.0760, 72.8777, 19.0760, 72.8777, 0, 0.0001},
		{"mumbai short hop", 19.0760, 72.8777, 19.0780, 72.8777, 0.22, 0.01},
		{"mumbai to delhi", 19.0760, 72.8777, 28.7041, 77.1025, 1153, 25},
		{"across the antimeridian", 0, 179.9, 0, -179.9, 22.24, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("Haversine() = %v km, want %v ± %v", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestQuantizeCollapsesNearbyQueries(t *testing.T) {
	if Quantize(19.07601) != Quantize(19.07640) {
		t.Errorf("expected %s == %s", Quantize(19.07601), Quantize(19.07640))
	}
	if Quantize(19.076) == Quantize(19.081) {
		t.Errorf("distinct areas must not share a key")
	}
	if got := Quantize(72.8777); got != "72.878" {
		t.Errorf("Quantize(72.8777) = %s, want 72.878", got)
	}
}

func TestBoxContainsRadius(t *testing.T) {
	lat, lng := 19.0760, 72.8777
	box := Box(lat, lng, 5)

	// A point 0.22 km north must be inside the prefilter box.
	if 19.0780 < box.MinLat || 19.0780 > box.MaxLat {
		t.Errorf("nearby point outside box %+v", box)
	}
	// The box edge must be at least 5 km away from the center.
	if d := Haversine(lat, lng, box.MaxLat, lng); d < 5 {
		t.Errorf("box under-approximates radius: edge at %v km", d)
	}
	if d := Haversine(lat, lng, lat, box.MaxLng); d < 5 {
		t.Errorf("box under-approximates radius: edge at %v km", d)
	}
}

func TestBoxClampsAtPoles(t *testing.T) {
	box := Box(89.9, 0, 50)
	if box.MaxLat > 90 || box.MinLng < -180 || box.MaxLng > 180 {
		t.Errorf("box not clamped: %+v", box)
	}
}
