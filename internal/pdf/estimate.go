// Package pdf renders the estimate request summary sent to the customer and
// attached to the office notification.
package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"arxenbot/internal/estimate"
)

// SectionErrorText replaces a section that failed to render.
const SectionErrorText = "This section could not be displayed."

// compress is switched off in tests so the content streams can be inspected.
var compress = true

// Company is printed in the header and footer.
type Company struct {
	Name    string
	Phone   string
	Email   string
	Website string
}

// Document is everything the PDF shows.
type Document struct {
	ReferenceNumber string
	CreatedAt       time.Time
	Form            estimate.FormData
	Promo           *estimate.Promo
	Company         Company
}

// Filename returns the download name for ref.
func Filename(ref string) string {
	return fmt.Sprintf("Arxen-Estimate-%s.pdf", ref)
}

type section struct {
	name   string
	render func(p *page, doc Document)
}

var sections = []section{
	{"header", renderHeader},
	{"reference", renderReference},
	{"customer", renderCustomer},
	{"services", renderServices},
	{"project", renderProject},
	{"promo", renderPromo},
	{"footer", renderFooter},
}

// page wraps fpdf with the layout constants and a cp1252 translator for the
// core fonts.
type page struct {
	*fpdf.Fpdf
	tr    func(string) string
	width float64
}

const (
	margin     = 15.0
	lineHeight = 6.0
)

// brand colour
var navy = [3]int{26, 54, 93}

// Render writes the estimate PDF for doc to w.
func Render(w io.Writer, doc Document) error {
	return render(w, doc, sections)
}

func render(w io.Writer, doc Document, secs []section) error {
	f := fpdf.New("P", "mm", "Letter", "")
	f.SetCompression(compress)
	f.SetMargins(margin, margin, margin)
	f.SetAutoPageBreak(true, 20)
	f.SetTitle("Estimate Request "+doc.ReferenceNumber, true)
	f.SetAuthor(doc.Company.Name, true)
	if !doc.CreatedAt.IsZero() {
		f.SetCreationDate(doc.CreatedAt)
	}
	f.AddPage()

	pageWidth, _ := f.GetPageSize()
	p := &page{Fpdf: f, tr: f.UnicodeTranslatorFromDescriptor(""), width: pageWidth - 2*margin}

	for _, s := range secs {
		p.guard(s, doc)
	}

	if err := f.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// guard renders one section; a panic inside it is replaced by an inline notice
// so the rest of the document still renders.
func (p *page) guard(s section, doc Document) {
	defer func() {
		if r := recover(); r != nil {
			p.SetFont("Helvetica", "I", 10)
			p.SetTextColor(180, 30, 30)
			p.CellFormat(p.width, lineHeight, p.tr(SectionErrorText), "", 1, "L", false, 0, "")
			p.SetTextColor(0, 0, 0)
		}
	}()
	s.render(p, doc)
}

func (p *page) heading(text string) {
	p.Ln(4)
	p.SetFont("Helvetica", "B", 12)
	p.SetTextColor(navy[0], navy[1], navy[2])
	p.CellFormat(p.width, 8, p.tr(text), "B", 1, "L", false, 0, "")
	p.SetTextColor(0, 0, 0)
	p.Ln(1)
}

func (p *page) field(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	p.SetFont("Helvetica", "B", 10)
	p.CellFormat(45, lineHeight, p.tr(label+":"), "", 0, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.MultiCell(p.width-45, lineHeight, p.tr(value), "", "L", false)
}

func renderHeader(p *page, doc Document) {
	p.SetFillColor(navy[0], navy[1], navy[2])
	p.Rect(0, 0, p.width+2*margin, 32, "F")
	p.SetY(9)
	p.SetTextColor(255, 255, 255)
	p.SetFont("Helvetica", "B", 20)
	p.CellFormat(p.width, 9, p.tr(strings.ToUpper(doc.Company.Name)), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 11)
	p.CellFormat(p.width, 6, p.tr("Free Estimate Request"), "", 1, "L", false, 0, "")
	p.SetTextColor(0, 0, 0)
	p.SetY(38)

	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	p.SetFont("Helvetica", "", 9)
	p.CellFormat(p.width, 5, p.tr("Submitted "+created.Format("January 2, 2006")), "", 1, "R", false, 0, "")
}

func renderReference(p *page, doc Document) {
	p.Ln(2)
	p.SetFillColor(237, 242, 247)
	p.SetDrawColor(navy[0], navy[1], navy[2])
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(p.width, 7, p.tr("Your reference number"), "LTR", 1, "C", true, 0, "")
	p.SetFont("Courier", "B", 16)
	p.CellFormat(p.width, 10, doc.ReferenceNumber, "LBR", 1, "C", true, 0, "")
	p.SetFont("Helvetica", "I", 8)
	p.CellFormat(p.width, 5, p.tr("Please mention this number when contacting us about your estimate."), "", 1, "C", false, 0, "")
}

func renderCustomer(p *page, doc Document) {
	c := doc.Form.ContactInfo
	p.heading("Customer Information")
	p.field("Name", c.Name)
	p.field("Email", c.Email)
	p.field("Phone", c.Phone)
	p.field("Preferred contact", c.PreferredContact)
	p.field("Best time", c.BestTime)
	p.field("Address", joinNonEmpty(", ", c.Address, c.City, c.Zip))
}

func renderServices(p *page, doc Document) {
	p.heading("Requested Services")
	labels := doc.Form.ServiceLabels()
	p.SetFont("Helvetica", "", 10)
	if len(labels) == 0 {
		p.CellFormat(p.width, lineHeight, p.tr("No services selected"), "", 1, "L", false, 0, "")
	}
	for _, label := range labels {
		p.CellFormat(p.width, lineHeight, p.tr("- "+label), "", 1, "L", false, 0, "")
	}
	p.field("Property type", string(doc.Form.Services.PropertyType))
	p.field("Other", doc.Form.Services.Other)
}

func renderProject(p *page, doc Document) {
	d := doc.Form.ProjectDetails
	p.heading("Project Details")
	p.field("Description", d.Description)
	p.field("Urgency", d.Urgency)
	p.field("Scope", d.Scope)
	p.field("Square footage", d.SquareFootage)
	p.field("Budget", d.Budget)
	p.field("Preferred start", doc.Form.Timeline.PreferredStart)
	p.field("Flexibility", doc.Form.Timeline.Flexibility)

	if len(doc.Form.Files) > 0 {
		names := make([]string, len(doc.Form.Files))
		for i, f := range doc.Form.Files {
			names[i] = f.Name
		}
		p.field("Attachments", strings.Join(names, ", "))
	}
	p.field("Notes", doc.Form.Notes)
}

func renderPromo(p *page, doc Document) {
	if doc.Promo == nil {
		return
	}
	p.Ln(6)
	p.SetFillColor(254, 243, 199)
	p.SetDrawColor(217, 119, 6)
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(p.width, 9, p.tr("Promotion "+doc.Promo.Code+": "+doc.Promo.Headline), "LTR", 1, "C", true, 0, "")
	p.SetFont("Helvetica", "", 9)
	p.MultiCell(p.width, 5, p.tr(doc.Promo.Description), "LBR", "C", true)
}

func renderFooter(p *page, doc Document) {
	p.Ln(10)
	p.SetDrawColor(200, 200, 200)
	y := p.GetY()
	p.Line(margin, y, margin+p.width, y)
	p.Ln(2)
	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(90, 90, 90)
	p.MultiCell(p.width, 5, p.tr("Thank you for choosing "+doc.Company.Name+
		". A project manager will contact you within one business day to schedule your consultation."), "", "C", false)
	p.CellFormat(p.width, 5, p.tr(joinNonEmpty("  |  ", doc.Company.Phone, doc.Company.Email, doc.Company.Website)), "", 1, "C", false, 0, "")
	p.SetTextColor(0, 0, 0)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}
