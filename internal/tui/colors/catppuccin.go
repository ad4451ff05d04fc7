package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Macchiato color palette
var (
	// Base colors
	Base     = lipgloss.Color("#24273a") // Dark background
	Mantle   = lipgloss.Color("#1e2030") // Darker background
	Crust    = lipgloss.Color("#181926") // Darkest background
	Surface0 = lipgloss.Color("#363a4f") // Surface colors
	Surface1 = lipgloss.Color("#494d64")
	Surface2 = lipgloss.Color("#5b6078")
	Overlay0 = lipgloss.Color("#6e738d") // Overlay colors
	Overlay1 = lipgloss.Color("#8087a2")
	Overlay2 = lipgloss.Color("#939ab7")
	Subtext0 = lipgloss.Color("#a5adcb") // Text colors
	Subtext1 = lipgloss.Color("#b8c0e0")
	Text     = lipgloss.Color("#cad3f5") // Main text

	// Accent colors
	Lavender  = lipgloss.Color("#b7bdf8") // Light purple
	Blue      = lipgloss.Color("#8aadf4") // Blue
	Sapphire  = lipgloss.Color("#7dc4e4") // Light blue
	Sky       = lipgloss.Color("#91d7e3") // Sky blue
	Teal      = lipgloss.Color("#8bd5ca") // Teal
	Green     = lipgloss.Color("#a6da95") // Green
	Yellow    = lipgloss.Color("#eed49f") // Yellow
	Peach     = lipgloss.Color("#f5a97f") // Orange
	Maroon    = lipgloss.Color("#ee99a0") // Light red
	Red       = lipgloss.Color("#ed8796") // Red
	Mauve     = lipgloss.Color("#c6a0f6") // Purple
	Pink      = lipgloss.Color("#f5bde6") // Pink
	Flamingo  = lipgloss.Color("#f0c6c6") // Light pink
	Rosewater = lipgloss.Color("#f4dbd6") // Lightest pink
)
