package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Green     = lipgloss.Color("#22C55E")
	Amber     = lipgloss.Color("#F59E0B")
	Blue      = lipgloss.Color("#3B82F6")
	Red       = lipgloss.Color("#EF4444")
	Cyan      = lipgloss.Color("#06B6D4")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	debugStyle   = lipgloss.NewStyle().Foreground(LightGray)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(White).Background(Blue).Padding(0, 1)
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

// Output is where all ui functions write. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

func printStyled(style lipgloss.Style, format string, a ...any) {
	fmt.Fprintln(Output, style.Render(fmt.Sprintf(format, a...)))
}

func Success(format string, a ...any) { printStyled(successStyle, format, a...) }
func Info(format string, a ...any)    { printStyled(infoStyle, format, a...) }
func Debug(format string, a ...any)   { printStyled(debugStyle, format, a...) }
func Warn(format string, a ...any)    { printStyled(warnStyle, format, a...) }
func Error(format string, a ...any)   { printStyled(errorStyle, format, a...) }

// Basic prints unstyled text.
func Basic(format string, a ...any) {
	fmt.Fprintf(Output, format+"\n", a...)
}

func Section(title string, textLines []string) {
	fmt.Fprintln(Output, sectionStyle.Render(title))
	fmt.Fprintln(Output, bodyStyle.Render(strings.Join(textLines, "\n")))
}

// Grade renders an evaluation grade in its color.
func Grade(grade string) string {
	switch grade {
	case "우수":
		return lipgloss.NewStyle().Foreground(Green).Render(grade)
	case "평균":
		return lipgloss.NewStyle().Foreground(Blue).Render(grade)
	case "개선":
		return lipgloss.NewStyle().Foreground(Amber).Render(grade)
	case "불량":
		return lipgloss.NewStyle().Foreground(Red).Render(grade)
	default:
		return lipgloss.NewStyle().Foreground(LightGray).Italic(true).Render(grade)
	}
}
