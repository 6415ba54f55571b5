package merchant

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Cafe Rio", "CAFE RIO"},
		{"accented", "Café Rio", "CAFE RIO"},
		{"whitespace run", "Cafe   Rio ", "CAFE RIO"},
		{"already upper", "CAFE RIO", "CAFE RIO"},
		{"empty", "", ""},
		{"mixed", "  josé's  Táco Shop ", "JOSE'S TACO SHOP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_MergesVariants(t *testing.T) {
	if Normalize("Café  Rio") != Normalize("CAFE RIO") {
		t.Error("variant spellings should normalize to the same key")
	}
}
