package ui

import "github.com/charmbracelet/lipgloss"

// palette is the cosmetic part of dark mode.
type palette struct {
	title      lipgloss.Style
	userBubble lipgloss.Style
	botBubble  lipgloss.Style
	timestamp  lipgloss.Style
	typing     lipgloss.Style
	status     lipgloss.Style
	glamour    string
}

var lightPalette = palette{
	title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
	userBubble: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("27")),
	botBubble:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("235")).Background(lipgloss.Color("254")),
	timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	typing:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
	status:     lipgloss.NewStyle().Foreground(lipgloss.Color("166")),
	glamour:    "light",
}

var darkPalette = palette{
	title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
	userBubble: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("27")),
	botBubble:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238")),
	timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	typing:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("242")),
	status:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	glamour:    "dark",
}

func paletteFor(dark bool) palette {
	if dark {
		return darkPalette
	}
	return lightPalette
}
