package output

import (
	"fmt"
	"strings"
)

// Bar renders value as a horizontal bar scaled so that top fills width.
// Example: "██████░░░░ 6"
func Bar(value, top, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if top > 0 {
		filled = value * width / top
	}
	if value > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s", StyleHeader.Render(bar), StyleMuted.Render(fmt.Sprintf("%d", value)))
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders a series as a compact row of block characters.
func Sparkline(values []int) string {
	top := 0
	for _, v := range values {
		if v > top {
			top = v
		}
	}
	var sb strings.Builder
	for _, v := range values {
		i := 0
		if top > 0 && v > 0 {
			i = v * (len(sparkTicks) - 1) / top
		}
		sb.WriteRune(sparkTicks[i])
	}
	return sb.String()
}

// TrendArrow returns a styled trend indicator for a delta value.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
// higherIsBetter decides whether the change is styled as an improvement.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := isPositive == higherIsBetter

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.1f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.1f", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// RatioStyle colours a predictability ratio: up to 2 is healthy, up to 4 is
// a warning, anything higher is an error.
func RatioStyle(ratio float64) string {
	s := fmt.Sprintf("%.1f", ratio)
	switch {
	case ratio <= 2:
		return StyleSuccess.Render(s)
	case ratio <= 4:
		return StyleWarning.Render(s)
	default:
		return StyleError.Render(s)
	}
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
