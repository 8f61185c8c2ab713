package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/server"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Width(10)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// renderBanner returns the human-readable startup summary.
func renderBanner(s config.Snapshot, addr string) string {
	base := "http://" + addr

	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	lines := []string{
		titleStyle.Render("Ubuntu autoinstall server"),
		"",
		row("address", base),
		row("user", s.Username),
		row("storage", s.StorageLayout),
		row("variant", string(s.Variant)),
		row("config", server.ConfigSource(s)),
		"",
		"endpoints:",
	}
	for _, route := range server.Routes {
		lines = append(lines, fmt.Sprintf("  %s%s", base, route))
	}
	if !s.CredentialConfigured() || !s.SSHKeyConfigured() {
		lines = append(lines, "", warningStyle.Render("placeholder credentials in use, see warnings above"))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
