package probe

import "testing"

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		out     string
		want    float64
		wantErr bool
	}{
		{"8.012000\n", 8.012, false},
		{"  12.5  ", 12.5, false},
		{"120", 120, false},
		{"N/A\n", 0, true},
		{"", 0, true},
		{"0.000000", 0, true},
		{"-3.5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSeconds(tt.out)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSeconds(%q): expected error, got %g", tt.out, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSeconds(%q): %v", tt.out, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSeconds(%q) = %g, want %g", tt.out, got, tt.want)
		}
	}
}
