package output

import (
	"strings"
	"testing"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

func TestBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		name       string
		value, top int
		wantFilled int
		wantSuffix string
	}{
		{"full", 10, 10, 10, " 10"},
		{"half", 5, 10, 5, " 5"},
		{"tiny value still shows", 1, 100, 1, " 1"},
		{"zero", 0, 10, 0, " 0"},
		{"no top", 3, 0, 1, " 3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Bar(tc.value, tc.top, 10)
			if n := strings.Count(got, "█"); n != tc.wantFilled {
				t.Errorf("Bar(%d, %d) filled = %d, want %d (%q)", tc.value, tc.top, n, tc.wantFilled, got)
			}
			if !strings.HasSuffix(got, tc.wantSuffix) {
				t.Errorf("Bar(%d, %d) = %q, want suffix %q", tc.value, tc.top, got, tc.wantSuffix)
			}
		})
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]int{0, 7, 14}); got != "▁▄█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline([]int{0, 0}); got != "▁▁" {
		t.Errorf("Sparkline of zeros = %q", got)
	}
	if got := Sparkline(nil); got != "" {
		t.Errorf("Sparkline(nil) = %q", got)
	}
}

func TestTrendArrow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := TrendArrow(0, true); got != "─" {
		t.Errorf("TrendArrow(0) = %q", got)
	}
	if got := TrendArrow(1.5, false); got != "▲ +1.5" {
		t.Errorf("TrendArrow(1.5) = %q", got)
	}
	if got := TrendArrow(-2, true); got != "▼ -2.0" {
		t.Errorf("TrendArrow(-2) = %q", got)
	}
}

func TestRatioStyle(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := RatioStyle(2.04); got != "2.0" {
		t.Errorf("RatioStyle = %q", got)
	}
}

func TestZoneStyle_NoColor(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := ZoneStyle(flow.ColorRed).Render("9d"); got != "9d" {
		t.Errorf("ZoneStyle rendered %q with color disabled", got)
	}
}

func TestSection(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	got := Section("Lead time")
	if !strings.Contains(got, "Lead time") || !strings.Contains(got, "─") {
		t.Errorf("Section = %q", got)
	}
}
