// Package report renders meeting notes into downloadable documents.
package report

import (
	"context"
	"io"
	"time"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// NotesDocument is everything a generator needs to lay out one set of notes.
type NotesDocument struct {
	Title       string
	RecordedAt  time.Time
	GeneratedAt time.Time
	Notes       *domain.Notes
}

// NewNotesDocument builds a document for the notes of the given video.
func NewNotesDocument(video *domain.Video, notes *domain.Notes, now time.Time) *NotesDocument {
	doc := &NotesDocument{
		Title:       "Meeting notes",
		GeneratedAt: now,
		Notes:       notes,
	}
	if video != nil {
		if video.Filename != "" {
			doc.Title = video.Filename
		}
		doc.RecordedAt = video.UploadedAt
	}
	if doc.RecordedAt.IsZero() && notes != nil {
		doc.RecordedAt = notes.CreatedAt
	}
	return doc
}

// Generator writes a NotesDocument in some output format.
type Generator interface {
	// Generate writes the document to w and returns the bytes written.
	Generate(ctx context.Context, doc *NotesDocument, w io.Writer) (int64, error)

	// ContentType is the MIME type of the generated output.
	ContentType() string
}

// =============================================================================
// Colors
// =============================================================================

// Colors is the palette used by the generators.
var Colors = struct {
	Brand     string
	Accent    string
	TextDark  string
	TextMuted string
	Border    string
	Warning   string
}{
	Brand:     "#1E3A5F",
	Accent:    "#7C3AED",
	TextDark:  "#1F2937",
	TextMuted: "#6B7280",
	Border:    "#E5E7EB",
	Warning:   "#B45309",
}

// HexToRGB converts "#RRGGBB" or "RRGGBB" to its components.
// Malformed input yields black.
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	return hexToDec(hex[0:2]), hexToDec(hex[2:4]), hexToDec(hex[4:6])
}

func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// FormatDate formats a date for display in documents.
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a timestamp for display in documents.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// ActionItemDetail joins the optional owner, due date and status of an item.
func ActionItemDetail(item domain.ActionItem) string {
	detail := ""
	add := func(label, value string) {
		if value == "" {
			return
		}
		if detail != "" {
			detail += " | "
		}
		detail += label + ": " + value
	}
	add("Owner", item.AssignedTo)
	add("Due", item.DueDate)
	add("Status", item.Status)
	return detail
}
