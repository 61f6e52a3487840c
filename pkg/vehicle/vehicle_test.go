package vehicle

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kia", "KIA"},
		{"glp", "GLP"},
		{"seat", "Seat"},
		{"alfa romeo", "Alfa Romeo"},
		{"hibrido ench.", "Hibrido Ench."},
		{"škoda", "Škoda"},
		{"żuk", "ŻUK"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.in); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewObservation(t *testing.T) {
	f := Features{FuelType: "diesel", Brand: "seat", Segment: "c", BodyType: "suv"}
	obs := NewObservation(3, 42000, f)
	if obs.Age != 3 || obs.KM != 42000 || obs.Brand != "seat" || obs.FuelType != "diesel" {
		t.Errorf("unexpected observation: %+v", obs)
	}
}
