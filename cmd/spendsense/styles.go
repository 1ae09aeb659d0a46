package main

import (
	"errors"
	"strings"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#4ECDC4")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(primaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

const (
	successIcon = "✓"
	errorIcon   = "✗"
	warningIcon = "!"
)

func formatSuccess(msg string) string { return successStyle.Render(successIcon + " " + msg) }

func formatWarning(msg string) string { return warningStyle.Render(warningIcon + " " + msg) }

// formatError renders err for the terminal. Validation failures list every
// message on its own line.
func formatError(err error) string {
	var validation *domain.ValidationError
	if errors.As(err, &validation) && len(validation.Messages) > 0 {
		lines := make([]string, 0, len(validation.Messages)+1)
		lines = append(lines, errorStyle.Render(errorIcon+" Please fix the following:"))
		for _, m := range validation.Messages {
			lines = append(lines, errorStyle.Render("  - "+m))
		}
		return strings.Join(lines, "\n")
	}

	msg := err.Error()
	var authErr *domain.AuthError
	if errors.As(err, &authErr) && authErr.Reason == domain.AuthNotAuthenticated {
		msg = "not logged in, run 'spendsense login' first"
	}
	return errorStyle.Render(errorIcon + " " + msg)
}

// classificationStyle colours a budget state: ok green, near_limit amber,
// over_budget red.
func classificationStyle(c domain.Classification) lipgloss.Style {
	switch c {
	case domain.ClassOverBudget:
		return errorStyle
	case domain.ClassNearLimit:
		return warningStyle
	}
	return successStyle
}
