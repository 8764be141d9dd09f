// Package ui renders the terminal conversation: the banner, role
// prefixes and the assistant's Markdown replies.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
)

const brandGreen = "#34A853"

// MINDA ASCII art.
var bannerArt = []string{
	"    ███╗   ███╗██╗███╗   ██╗██████╗  █████╗ ",
	"    ████╗ ████║██║████╗  ██║██╔══██╗██╔══██╗",
	"    ██╔████╔██║██║██╔██╗ ██║██║  ██║███████║",
	"    ██║╚██╔╝██║██║██║╚██╗██║██║  ██║██╔══██║",
	"    ██║ ╚═╝ ██║██║██║ ╚████║██████╔╝██║  ██║",
	"    ╚═╝     ╚═╝╚═╝╚═╝  ╚═══╝╚═════╝ ╚═╝  ╚═╝",
}

// Styles holds the console styles.
type Styles struct {
	Banner    lipgloss.Style
	Info      lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(brandGreen)),
		Info:      lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Console writes styled output and reads user input.
type Console struct {
	out      io.Writer
	in       *bufio.Scanner
	styles   Styles
	renderer *glamour.TermRenderer
}

// NewConsole creates a console over the given streams. Markdown
// rendering degrades to plain text when the renderer cannot be built.
func NewConsole(in io.Reader, out io.Writer) *Console {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		r = nil
	}
	return &Console{
		out:      out,
		in:       bufio.NewScanner(in),
		styles:   DefaultStyles(),
		renderer: r,
	}
}

// Banner prints the application banner with model info.
func (c *Console) Banner(version, model string) {
	fmt.Fprintln(c.out)
	for _, line := range bannerArt {
		fmt.Fprintln(c.out, c.styles.Banner.Render(line))
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.Info.Render(fmt.Sprintf("Version: %s | Model: %s", version, model)))
	fmt.Fprintln(c.out)
}

// Infof prints a subdued informational line.
func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Info.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints an error line.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Prompt prints the user prompt prefix and reads one input line.
// Returns false on EOF.
func (c *Console) Prompt(label string) (string, bool) {
	fmt.Fprint(c.out, c.styles.User.Render(label+" > "))
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// Reply prints an assistant reply as rendered Markdown, falling back to
// the raw text.
func (c *Console) Reply(text string) {
	fmt.Fprintln(c.out, c.styles.Assistant.Render("minda >"))
	if c.renderer != nil {
		if rendered, err := c.renderer.Render(text); err == nil {
			fmt.Fprint(c.out, strings.TrimRight(rendered, "\n")+"\n\n")
			return
		}
	}
	fmt.Fprintln(c.out, text)
	fmt.Fprintln(c.out)
}
