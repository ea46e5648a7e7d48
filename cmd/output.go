package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("25")).
			Padding(0, 2)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func printBanner(w io.Writer, name, kind string) {
	fmt.Fprintln(w, bannerStyle.Render(name)+" "+dimStyle.Render(kind))
}

func printFooter(w io.Writer, elapsed time.Duration, runErr string) {
	if runErr != "" {
		fmt.Fprintln(w, errorStyle.Render("✗ "+runErr))
		return
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("done in %s", elapsed.Round(time.Millisecond))))
}
