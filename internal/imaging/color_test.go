package imaging

import (
	"image/color"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FF0000", color.NRGBA{255, 0, 0, 255}, false},
		{"#1a9850", color.NRGBA{0x1a, 0x98, 0x50, 255}, false},
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"FF0000", color.NRGBA{}, true},
		{"#GG0000", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCloudColor_Endpoints(t *testing.T) {
	clear := CloudColor(0)
	if clear != (color.NRGBA{0x1a, 0x98, 0x50, 255}) {
		t.Errorf("CloudColor(0) = %v, want clear sky green", clear)
	}
	overcast := CloudColor(1)
	if overcast != (color.NRGBA{0xd7, 0x30, 0x27, 255}) {
		t.Errorf("CloudColor(1) = %v, want overcast red", overcast)
	}
	if CloudColor(-0.5) != clear {
		t.Error("negative cover should clamp to clear sky")
	}
	if CloudColor(7) != overcast {
		t.Error("cover above 1 should clamp to overcast")
	}
}

func TestCloudColor_RedIncreases(t *testing.T) {
	prev := CloudColor(0)
	for _, f := range []float64{0.25, 0.5, 0.75, 1} {
		cur := CloudColor(f)
		if cur.R < prev.R {
			t.Errorf("red channel dropped from %d to %d at %v", prev.R, cur.R, f)
		}
		if cur.A != 255 {
			t.Errorf("CloudColor(%v) is not opaque", f)
		}
		prev = cur
	}
}

func TestPalette(t *testing.T) {
	start := colorful.Color{R: 0, G: 0, B: 1}
	end := colorful.Color{R: 1, G: 0, B: 0}

	if got := Palette(0, start, end); got != nil {
		t.Errorf("Palette(0) = %v, want nil", got)
	}
	if got := Palette(1, start, end); len(got) != 1 || got[0] != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("Palette(1) = %v, want [blue]", got)
	}

	p := Palette(5, start, end)
	if len(p) != 5 {
		t.Fatalf("Palette(5) has %d colors", len(p))
	}
	if p[0] != (color.NRGBA{0, 0, 255, 255}) || p[4] != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("palette endpoints = %v, %v", p[0], p[4])
	}
	seen := map[color.NRGBA]bool{}
	for _, c := range p {
		seen[c] = true
	}
	if len(seen) != 5 {
		t.Errorf("palette has duplicate colors: %v", p)
	}
}
