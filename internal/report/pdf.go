package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders meeting notes as an A4 PDF.
type PDFGenerator struct {
	pageWidth    float64
	margin       float64
	contentWidth float64
}

// NewPDFGenerator creates a PDF generator with default page geometry.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// ContentType returns the MIME type of the output.
func (g *PDFGenerator) ContentType() string {
	return "application/pdf"
}

// Generate renders doc and writes the PDF to w.
func (g *PDFGenerator) Generate(ctx context.Context, doc *NotesDocument, w io.Writer) (int64, error) {
	if doc == nil || doc.Notes == nil {
		return 0, errors.New("pdf generation error: no notes")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; transcripts are UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("NoteGenie", true)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, doc)
	})

	pdf.AddPage()
	g.addHeader(pdf, tr, doc)
	if doc.Notes.ReducedAccuracy {
		g.addReducedAccuracyNotice(pdf)
	}
	g.addSummary(pdf, tr, doc)
	g.addActionItems(pdf, tr, doc)
	g.addTranscript(pdf, tr, doc)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Sections
// =============================================================================

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, tr func(string) string, doc *NotesDocument) {
	r, gr, b := HexToRGB(Colors.Brand)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 40, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(g.margin, 12)
	pdf.Cell(0, 10, tr(doc.Title))

	if !doc.RecordedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetXY(g.margin, 25)
		pdf.Cell(0, 6, "Recorded "+FormatDate(doc.RecordedAt))
	}

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetXY(g.margin, 50)
}

func (g *PDFGenerator) addReducedAccuracyNotice(pdf *fpdf.Fpdf) {
	r, gr, b := HexToRGB(Colors.Warning)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(g.contentWidth, 5,
		"These notes were generated in reduced-accuracy mode after the daily allowance ran out.",
		"", "L", false)
	pdf.Ln(4)

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addSummary(pdf *fpdf.Fpdf, tr func(string) string, doc *NotesDocument) {
	g.addSectionHeader(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 11)
	summary := strings.TrimSpace(doc.Notes.Summary)
	if summary == "" {
		pdf.SetFont("Helvetica", "I", 11)
		summary = "No summary was produced for this meeting."
	}
	pdf.MultiCell(g.contentWidth, 6, tr(summary), "", "L", false)
	pdf.Ln(6)
}

func (g *PDFGenerator) addActionItems(pdf *fpdf.Fpdf, tr func(string) string, doc *NotesDocument) {
	g.addSectionHeader(pdf, "Action Items")

	if len(doc.Notes.ActionItems) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No action items were identified.")
		pdf.Ln(12)
		return
	}

	for i, item := range doc.Notes.ActionItems {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		r, gr, b := HexToRGB(Colors.Accent)
		pdf.SetFillColor(r, gr, b)
		pdf.Rect(g.margin, pdf.GetY()+1, 3, 5, "F")

		pdf.SetX(g.margin + 6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(g.contentWidth-6, 6, tr(fmt.Sprintf("%d. %s", i+1, item.Task)), "", "L", false)

		if detail := ActionItemDetail(item); detail != "" {
			r, gr, b = HexToRGB(Colors.TextMuted)
			pdf.SetTextColor(r, gr, b)
			pdf.SetX(g.margin + 6)
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(g.contentWidth-6, 5, tr(detail), "", "L", false)

			r, gr, b = HexToRGB(Colors.TextDark)
			pdf.SetTextColor(r, gr, b)
		}
		pdf.Ln(2)
	}
	pdf.Ln(4)
}

func (g *PDFGenerator) addTranscript(pdf *fpdf.Fpdf, tr func(string) string, doc *NotesDocument) {
	transcript := strings.TrimSpace(doc.Notes.Transcript)
	if transcript == "" {
		return
	}

	if pdf.GetY() > 220 {
		pdf.AddPage()
	}
	g.addSectionHeader(pdf, "Transcript")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(g.contentWidth, 5, tr(transcript), "", "L", false)
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *fpdf.Fpdf, title string) {
	r, gr, b := HexToRGB(Colors.Brand)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(6)

	r, gr, b = HexToRGB(Colors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, doc *NotesDocument) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(Colors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	r, gr, b = HexToRGB(Colors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	pdf.Cell(0, 10, "Generated "+FormatDateTime(doc.GeneratedAt))

	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
