package montage

import "testing"

func TestForChannelCount(t *testing.T) {
	tests := []struct {
		channels   int
		want       string
		electrodes int
	}{
		{10, "reduced-10", 10},
		{11, "reduced-10", 10},
		{19, "standard-10-20", 19},
		{20, "standard-10-20", 19},
	}
	for _, tt := range tests {
		m, ok := ForChannelCount(tt.channels)
		if !ok {
			t.Errorf("no montage for %d channels", tt.channels)
			continue
		}
		if m.Name != tt.want {
			t.Errorf("channels %d: got %s, want %s", tt.channels, m.Name, tt.want)
		}
		if len(m.Electrodes) != tt.electrodes {
			t.Errorf("channels %d: got %d electrodes, want %d", tt.channels, len(m.Electrodes), tt.electrodes)
		}
	}

	if _, ok := ForChannelCount(7); ok {
		t.Error("expected no montage for 7 channels")
	}
}

func TestElectrodePositions(t *testing.T) {
	m, ok := ForChannelCount(19)
	if !ok {
		t.Fatal("no standard montage")
	}
	first := m.Electrodes[0]
	if first.Name != "EEG FP1-A1" {
		t.Errorf("unexpected first electrode: %s", first.Name)
	}
	if first.Position != [3]float64{-0.05, 0.075, 0.05} {
		t.Errorf("unexpected position: %v", first.Position)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 montages, got %d", len(names))
	}
}
