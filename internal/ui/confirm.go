package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning box on out and asks the user to type phrase on in.
// It returns true only when the typed line matches phrase exactly.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	width := GetTerminalWidth()

	lines := []string{
		lipgloss.NewStyle().Foreground(WarningColor).Bold(true).
			Render(fmt.Sprintf("%s  WARNING  %s", WarningMarker, title)),
		"",
	}
	for _, w := range warnings {
		lines = append(lines, ValueStyle.Render("• "+w))
	}

	fmt.Fprintln(out, lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n")))

	prompt := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	fmt.Fprint(out, prompt.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == phrase {
		return true
	}

	fmt.Fprintln(out, HintStyle.Render("  Operation cancelled."))
	return false
}

// ConfirmErase asks before wiping the settings sector of controller id.
func ConfirmErase(in io.Reader, out io.Writer, id string) bool {
	return Confirm(in, out, "ERASE SETTINGS", []string{
		"Every stored setting of " + id + " is wiped, including login and wireless credentials",
		"The controller restarts with factory defaults and opens its access point",
		"You will have to reconnect to the RemoteRelay network to configure it again",
	}, id)
}

// ConfirmReset asks before restoring factory settings.
func ConfirmReset(in io.Reader, out io.Writer, id string) bool {
	return Confirm(in, out, "FACTORY RESET", []string{
		"Login, password and wireless credentials of " + id + " return to their defaults",
		"The controller restarts afterwards",
	}, id)
}
