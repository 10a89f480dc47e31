package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/placeskit/pkg/fetch"
	"github.com/matzehuels/placeskit/pkg/quota"
)

// stdout receives all user-facing output. Replaced in tests.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleHeader      = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printRaw prints s unstyled, for output meant to be piped.
func printRaw(s string) {
	fmt.Fprintln(stdout, strings.TrimRight(s, "\n"))
}

// =============================================================================
// Domain Output
// =============================================================================

// printUsage shows today's quota with a bar, e.g. "[#####.....] 50.0%".
func printUsage(u quota.Usage) {
	pct := 100 * float64(u.Count) / float64(u.Limit)
	style := StyleSuccess
	switch {
	case u.Exhausted():
		style = StyleError
	case pct >= 80:
		style = StyleWarning
	}

	printKeyValue("Day", u.Day)
	printKeyValue("Used", StyleNumber.Render(strconv.Itoa(u.Count))+StyleDim.Render(" / "+strconv.Itoa(u.Limit)))
	printKeyValue("Remaining", strconv.Itoa(u.Remaining()))
	printKeyValue("", style.Render(usageBar(pct, 30))+" "+fmt.Sprintf("%.1f%%", pct))
}

func usageBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// historyTable renders tracker entries, newest last.
func historyTable(entries []quota.Entry, limit int) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Date, strconv.Itoa(e.Count), fmt.Sprintf("%.1f%%", 100*float64(e.Count)/float64(limit))}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Date", "Count", "Of limit").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 1 && entries[row].Count >= limit {
				return StyleError
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// placesTable renders a places search result.
func placesTable(p *fetch.PlacesResponse) string {
	rows := make([][]string, len(p.Results))
	for i, pl := range p.Results {
		rating := ""
		if pl.Rating > 0 {
			rating = fmt.Sprintf("%.1f (%d)", pl.Rating, pl.UserRatingsTotal)
		}
		rows[i] = []string{
			pl.Name,
			pl.Address(),
			fmt.Sprintf("%.6f,%.6f", pl.Geometry.Location.Lat, pl.Geometry.Location.Lng),
			rating,
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Name", "Address", "Location", "Rating").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
