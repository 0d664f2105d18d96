package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vitrina/vitrina/pkg/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	figureStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

var titleCaser = cases.Title(language.English)

// printFigure renders one figure as a bordered card.
func printFigure(f *core.Figure) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s / %s", f.Name, f.Manufacturer)
	if f.Scale != "" {
		fmt.Fprintf(&b, " (%s)", f.Scale)
	}

	var meta []string
	if f.Location != "" {
		meta = append(meta, titleCaser.String(f.Location))
	}
	if f.BoxNumber != "" {
		meta = append(meta, "box "+f.BoxNumber)
	}
	if f.SourceLink != "" {
		meta = append(meta, f.SourceLink)
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	}

	fmt.Println(figureStyle.Render(b.String()))
}

// formatStats renders catalog statistics for the terminal.
func formatStats(stats map[string]interface{}) {
	fmt.Println(titleStyle.Render("Catalog Statistics"))

	totalFigures, _ := stats["total_figures"].(int)
	totalUsers, _ := stats["total_users"].(int)
	fmt.Printf("Total figures: %d\n", totalFigures)
	fmt.Printf("Total users: %d\n\n", totalUsers)

	perUser, ok := stats["figures_per_user"].(map[string]int)
	if !ok || len(perUser) == 0 {
		fmt.Println(noDataStyle.Render("No figures catalogued yet."))
		return
	}

	usernames := make([]string, 0, len(perUser))
	for name := range perUser {
		usernames = append(usernames, name)
	}
	sort.Strings(usernames)

	fmt.Println("Figures per user:")
	for _, name := range usernames {
		fmt.Printf("  %s: %d\n", name, perUser[name])
	}
}
