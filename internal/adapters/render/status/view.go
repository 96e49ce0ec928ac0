// Package status renders pool status snapshots for the terminal.
package status

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/LiamVDB1/twitter-api/internal/application"
	"github.com/LiamVDB1/twitter-api/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

// Render returns a terminal view of the pool status.
func Render(statuses []application.AccountStatus, opts RenderOptions) string {
	return renderView(statuses, opts, newStyles())
}

func renderView(statuses []application.AccountStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Account Pool"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.AccountStatus, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render("@"+status.Username) + " " + stateLabel(status, s),
		s.detail.Render(healthLine(status)),
	}
	parts = append(parts, limitLines(status, opts, s)...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stateLabel(status application.AccountStatus, s styles) string {
	switch {
	case status.Disabled:
		return s.warning.Render("disabled")
	case status.LoggedIn:
		return s.ok.Render("logged in")
	default:
		return s.meta.Render("logged out")
	}
}

func healthLine(status application.AccountStatus) string {
	line := fmt.Sprintf("ok %d / failed %d (rate %.0f%%)",
		status.Health.SuccessCount,
		status.Health.FailureCount,
		status.Health.SuccessRate()*100)
	if status.Health.LastError != "" {
		line += ", last error: " + status.Health.LastError
	}
	return line
}

func limitLines(status application.AccountStatus, opts RenderOptions, s styles) []string {
	if len(status.RateLimits) == 0 {
		return []string{s.empty.Render("no rate limits recorded")}
	}

	categories := make([]domain.EndpointCategory, 0, len(status.RateLimits))
	for category := range status.RateLimits {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	lines := make([]string, 0, len(categories))
	for _, category := range categories {
		limit := status.RateLimits[category]
		label := s.limitKey.Render(fmt.Sprintf("%s:", category))
		budget := fmt.Sprintf("%d/%d", limit.Remaining, limit.Limit)
		var resetNote string
		if reset := time.Unix(limit.ResetAt, 0); reset.After(now) {
			resetNote = s.meta.Render(fmt.Sprintf("resets in %s", reset.Sub(now).Round(time.Second)))
		} else {
			resetNote = s.meta.Render("window reset")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", label, s.detail.Render(budget), resetNote))
	}
	return lines
}
