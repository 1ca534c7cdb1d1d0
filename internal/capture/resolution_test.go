package capture

import "testing"

func TestCheckResolution(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		ratio  string
		min    Size
		want   bool
	}{
		{name: "exact 16:9 above min", width: 1920, height: 1080, ratio: "16:9", min: Size{1280, 720}, want: true},
		{name: "exact 16:9 at min", width: 1280, height: 720, ratio: "16:9", min: Size{1280, 720}, want: true},
		{name: "4:3 against 16:9", width: 800, height: 600, ratio: "16:9", min: Size{1280, 720}, want: false},
		{name: "right ratio below min", width: 640, height: 360, ratio: "16:9", min: Size{1280, 720}, want: false},
		{name: "within one percent", width: 1920, height: 1090, ratio: "16:9", min: Size{}, want: true},
		{name: "outside one percent", width: 1920, height: 1100, ratio: "16:9", min: Size{}, want: false},
		{name: "zero height", width: 1920, height: 0, ratio: "16:9", min: Size{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckResolution(tt.width, tt.height, tt.ratio, tt.min)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckResolution(%d, %d, %q) = %v, want %v", tt.width, tt.height, tt.ratio, got, tt.want)
			}
		})
	}
}

func TestParseRatio_Invalid(t *testing.T) {
	for _, in := range []string{"", "16", "16:9:1", "a:9", "16:b", "0:9", "16:-9"} {
		if _, err := ParseRatio(in); err == nil {
			t.Errorf("ParseRatio(%q) expected error, got nil", in)
		}
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(1920, 1080); got != "1920x1080" {
		t.Errorf("FormatSize = %q, want 1920x1080", got)
	}
	if got := BlankFrame(800, 600).Resolution(); got != "800x600" {
		t.Errorf("Resolution = %q, want 800x600", got)
	}
}
