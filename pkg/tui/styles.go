// Package tui renders the controller in the terminal: static layout tables
// and an interactive knob panel.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/meeblipcc/pkg/layout"
)

// Meeblip front-panel colours
var (
	panelBlue  = lipgloss.Color("#1E90FF")
	knobAmber  = lipgloss.Color("#FFB000")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(knobAmber).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(knobAmber).
			Bold(true).
			PaddingLeft(2)

	headerStyle = lipgloss.NewStyle().
			Foreground(panelBlue).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(panelBlue).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBlue).
			Padding(1, 2)
)

const barWidth = 16

// bar draws a normalized value as a horizontal meter
func bar(value float64) string {
	filled := int(value*barWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// RenderLayout draws the parameter table with its ranges and controllers
func RenderLayout(t layout.Table) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" LAYOUT (%d PARAMETERS) ", t.Len())))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%3s  %-16s %-13s %10s %7s %4s", "#", "NAME", "KIND", "RANGE", "DEFAULT", "CC")))
	s.WriteString("\n")
	for i, d := range t {
		line := fmt.Sprintf("%3d  %-16s %-13s %10s %7d %4d",
			i, d.Name, d.Kind, fmt.Sprintf("%d..%d", d.MinValue, d.MaxValue), d.DefaultValue, d.CC)
		s.WriteString(rowStyle.Render(line))
		s.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(s.String(), "\n"))
}

func logo() string {
	art := `
  __  __ ___ ___ ___ _    ___ ___    ___ ___
 |  \/  | __| __| _ ) |  |_ _| _ \  / __/ __|
 | |\/| | _|| _|| _ \ |__ | ||  _/ | (_| (__
 |_|  |_|___|___|___/____|___|_|    \___\___|
`
	return lipgloss.NewStyle().Foreground(knobAmber).Render(art)
}
