package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/remoterelay/internal/client"
)

// Printer writes styled blocks for the one-shot relayctl commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer on w, or stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command banner.
func (p *Printer) PrintHeader(title, command string) {
	content := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)
	p.Println(boxStyle(PrimaryColor, p.width).Render(content))
}

// PrintFields prints key/value pairs sorted by key.
func (p *Printer) PrintFields(fields map[string]string) {
	p.Println(RenderFields(fields))
}

// PrintSuccess prints a success line followed by optional fields.
func (p *Printer) PrintSuccess(title string, fields map[string]string) {
	p.Println(SuccessTitleStyle.Render(SuccessMarker + " " + title))
	if len(fields) > 0 {
		p.PrintFields(fields)
	}
}

// PrintError prints err with the troubleshooting hint for its kind.
func (p *Printer) PrintError(title string, err error) {
	p.Println(RenderError(title, err, p.width))
}

// PrintState prints an orchestrator snapshot.
func (p *Printer) PrintState(s *client.State) {
	p.Println(RenderState(s))
}

// RenderFields renders key/value pairs sorted by key.
func RenderFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, KeyStyle.Render("  "+k+":")+" "+ValueStyle.Render(fields[k]))
	}
	return strings.Join(lines, "\n")
}

// RenderError renders a failure box with the hint for err.
func RenderError(title string, err error, width int) string {
	lines := []string{ErrorTitleStyle.Render(FailureMarker + "  FAILED  " + title)}
	if err != nil {
		lines = append(lines, "", ErrorMessageStyle.Render(client.GetShortErrorMessage(err)))
		if hint := client.GetTroubleshootingHint(err); hint != "" {
			lines = append(lines, "", HintStyle.Render(hint))
		}
	}
	return boxStyle(ErrorColor, clampWidth(width)).Render(strings.Join(lines, "\n"))
}

// RenderState renders the orchestrator axes one per line.
func RenderState(s *client.State) string {
	row := func(name, value string) string {
		return KeyStyle.Render("  "+name+":") + " " + StatusStyle(value).Render(value)
	}
	web := s.Web
	if !s.WebEnabled {
		web += " (web service off)"
	}
	lines := []string{
		row("Lifecycle", s.Lifecycle),
		row("Wireless", s.Wireless),
		row("Web", web),
		row("Heartbeat", s.Heartbeat),
	}
	if s.Attempts > 0 {
		lines = append(lines, row("Connect attempts", fmt.Sprintf("%d", s.Attempts)))
	}
	return strings.Join(lines, "\n")
}
