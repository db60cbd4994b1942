package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/uploader"
)

type styles struct {
	title   lipgloss.Style
	key     lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	ok      lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) field(key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+":"), " ", s.detail.Render(value))
}

func renderUpload(rec uploader.UploadRecord, s styles) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render(rec.FileName),
		s.field("id", rec.ID),
		s.field("uploaded", rec.UploadDate.Local().Format(time.RFC1123)),
		s.field("status", rec.Status),
		s.field("url", rec.URL),
	)
}

func renderUsage(u *domain.QuotaUsage, now time.Time, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("%s tier", u.Tier)),
		s.field("runs left", fmt.Sprintf("%d of %d", u.UsageCount, u.Allowance)),
		s.field("resets", formatRelative(u.NextResetAt, now)),
	}
	switch {
	case u.Exhausted:
		lines = append(lines, s.warning.Render("Daily usage limit reached. Please upgrade your tier."))
	case u.Overdraft:
		lines = append(lines, s.warning.Render(fmt.Sprintf(
			"Next run uses reduced accuracy (%d overdraft runs remain).", u.UsageCount-u.Floor)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderVideos(videos []uploader.UploadRecord, s styles) string {
	if len(videos) == 0 {
		return s.empty.Render("No videos.")
	}
	lines := make([]string, 0, len(videos))
	for _, v := range videos {
		lines = append(lines, fmt.Sprintf("%s  %s  %-10s %s",
			s.key.Render(v.ID),
			v.UploadDate.Local().Format("2006-01-02 15:04"),
			v.Status,
			v.FileName,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderNotes(n *uploader.Notes, s styles) string {
	lines := []string{s.title.Render("Summary")}
	if n.ReducedAccuracy {
		lines = append(lines, s.warning.Render("Processed with reduced accuracy."))
	}
	lines = append(lines, s.detail.Render(strings.TrimSpace(n.Summary)))

	items := []string{s.title.Render("Action items")}
	if len(n.ActionItems) == 0 {
		items = append(items, s.empty.Render("None."))
	}
	for _, item := range n.ActionItems {
		items = append(items, "- "+actionItemLine(item))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, items...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func actionItemLine(item domain.ActionItem) string {
	var extra []string
	if item.AssignedTo != "" {
		extra = append(extra, "@"+item.AssignedTo)
	}
	if item.DueDate != "" {
		extra = append(extra, "due "+item.DueDate)
	}
	if item.Status != "" {
		extra = append(extra, item.Status)
	}
	if len(extra) == 0 {
		return item.Task
	}
	return fmt.Sprintf("%s (%s)", item.Task, strings.Join(extra, ", "))
}

func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	d := t.Sub(now)
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("in %dm", m)
	}
	return fmt.Sprintf("in %dh%02dm", h, m)
}
