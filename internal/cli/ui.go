package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/sgtsnepi/pkg/embed"
)

var (
	colorAccent = lipgloss.Color("36")  // teal
	colorOK     = lipgloss.Color("35")  // green
	colorWarn   = lipgloss.Color("220") // amber
	colorErr    = lipgloss.Color("167") // soft red
	colorMuted  = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
	colorBright = lipgloss.Color("255")
)

var (
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleMuted  = lipgloss.NewStyle().Foreground(colorMuted)
	styleAccent = lipgloss.NewStyle().Foreground(colorAccent)
	styleBright = lipgloss.NewStyle().Foreground(colorBright)
	styleOK     = lipgloss.NewStyle().Foreground(colorOK)
	styleWarn   = lipgloss.NewStyle().Foreground(colorWarn)
	styleErr    = lipgloss.NewStyle().Foreground(colorErr)
	styleKey    = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

func printSuccess(format string, args ...any) {
	fmt.Println(styleOK.Render("✓") + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleErr.Render("✗") + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleWarn.Render("!") + " " + styleWarn.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleMuted.Render("›") + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + styleDim.Render("→") + " " + styleBright.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + styleBright.Render(value))
}

// printStats prints the vertex and edge counts of a graph and whether the
// result came from the cache.
func printStats(n, nnz int, cached bool) {
	var parts []string
	if n > 0 {
		parts = append(parts, fmt.Sprintf("%d vertices", n))
	}
	if nnz > 0 {
		parts = append(parts, fmt.Sprintf("%d edges", nnz))
	}
	line := "  " + styleDim.Render(strings.Join(parts, " · "))
	if cached {
		line += styleDim.Render(" · ") + styleOK.Render("cached")
	} else {
		line += styleDim.Render(" · ") + styleMuted.Render("computed")
	}
	fmt.Println(line)
}

// sparkLevels are the glyphs of a cost trace, lowest first.
var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// costTrace renders the KL evaluations as a sparkline scaled between their
// minimum and maximum.
func costTrace(costs []embed.CostPoint) string {
	if len(costs) == 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range costs {
		lo = math.Min(lo, c.KL)
		hi = math.Max(hi, c.KL)
	}
	var b strings.Builder
	top := len(sparkLevels) - 1
	for _, c := range costs {
		level := top
		if hi > lo {
			level = int(math.Round((c.KL - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

// printCosts prints the KL trace of an embedding run with its end points.
func printCosts(costs []embed.CostPoint) {
	if len(costs) < 2 {
		return
	}
	first, last := costs[0], costs[len(costs)-1]
	fmt.Println(styleKey.Render("kl trace") + " " + styleAccent.Render(costTrace(costs)) + " " +
		styleDim.Render(fmt.Sprintf("%.4f @%d → %.4f @%d", first.KL, first.Iteration, last.KL, last.Iteration)))
}

// printHistogram prints one bar per bin of a histogram over [0, 1].
func printHistogram(counts []float64, total int) {
	const barWidth = 40
	bins := len(counts)
	for i, c := range counts {
		frac := 0.0
		if total > 0 {
			frac = c / float64(total)
		}
		label := fmt.Sprintf("%.2f-%.2f", float64(i)/float64(bins), float64(i+1)/float64(bins))
		bar := strings.Repeat("█", int(frac*barWidth+0.5))
		fmt.Println("  " + styleDim.Render(label) + " " + styleAccent.Render(bar) + " " + styleAccent.Render(fmt.Sprintf("%d", int(c))))
	}
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(styleDim.Render(description+":") + " " + styleAccent.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
