package palette

import "testing"

func TestEmbeddedPalette(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		group string
		want  string
	}{
		{"person", "#3b82f6"},
		{"PERSON", "#3b82f6"},
		{"crypto_address", "#eab308"},
		{"spaceship", "#9ca3af"},
		{"", "#9ca3af"},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			if got := r.Color(tt.group); got != tt.want {
				t.Errorf("Color(%q) = %s, want %s", tt.group, got, tt.want)
			}
		})
	}

	if r.Surface().Ring != "#ffffff" {
		t.Errorf("ring colour = %s, want white", r.Surface().Ring)
	}
}

func TestLegendKeepsFileOrder(t *testing.T) {
	r, err := Parse([]byte(`
default: "#000000"
groups:
  zebra: "#111111"
  apple: "#222222"
  mango: "#333333"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	legend := r.Legend()
	want := []string{"zebra", "apple", "mango"}
	if len(legend) != len(want) {
		t.Fatalf("legend = %+v", legend)
	}
	for i, g := range want {
		if legend[i].Group != g {
			t.Errorf("legend[%d] = %s, want %s", i, legend[i].Group, g)
		}
	}
	if legend[1].Color != "#222222" {
		t.Errorf("apple colour = %s", legend[1].Color)
	}
}

func TestParseRequiresDefault(t *testing.T) {
	if _, err := Parse([]byte("groups:\n  a: \"#fff\"\n")); err == nil {
		t.Fatal("expected error for palette without default")
	}
}
