package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	Green  = lipgloss.Color("42")
	Cyan   = lipgloss.Color("45")
	Yellow = lipgloss.Color("220")
	Red    = lipgloss.Color("196")
	Gray   = lipgloss.Color("245")
	White  = lipgloss.Color("255")

	successStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	debugStyle   = lipgloss.NewStyle().Foreground(Gray)
	warnStyle    = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(White).Bold(true).Underline(true)
)

func Success(format string, a ...any) {
	fmt.Fprintln(os.Stdout, successStyle.Render(fmt.Sprintf(format, a...)))
}

func Info(format string, a ...any) {
	fmt.Fprintln(os.Stdout, infoStyle.Render(fmt.Sprintf(format, a...)))
}

func Debug(format string, a ...any) {
	fmt.Fprintln(os.Stdout, debugStyle.Render(fmt.Sprintf(format, a...)))
}

func Warn(format string, a ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf(format, a...)))
}

func Error(format string, a ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, a...)))
}

// Section prints a bold underlined title followed by plain text lines.
func Section(title string, lines []string) {
	fmt.Fprintln(os.Stdout, sectionStyle.Render(title))
	for _, line := range lines {
		fmt.Fprintln(os.Stdout, line)
	}
}
