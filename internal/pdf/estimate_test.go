package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxenbot/internal/estimate"
)

func testDocument() Document {
	promo, _ := estimate.LookupPromo("arx25")
	return Document{
		ReferenceNumber: "ARX-123456-789",
		CreatedAt:       time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Form: estimate.FormData{
			Services: estimate.Services{Selected: []string{"kitchen-remodeling", "flooring"}, PropertyType: "residential"},
			ProjectDetails: estimate.ProjectDetails{
				Description: "Replace cabinets and counters",
				Urgency:     "1-3-months",
				Scope:       "large",
			},
			Files: []estimate.FileRef{{Name: "kitchen.jpg", Size: 1024}},
			ContactInfo: estimate.ContactInfo{
				Name:             "Jordan Lee",
				Email:            "jordan@example.com",
				PreferredContact: estimate.ContactEmail,
			},
		},
		Promo:   &promo,
		Company: Company{Name: "Arxen Construction", Phone: "(404) 555-0100", Email: "info@example.com"},
	}
}

func uncompressed(t *testing.T) {
	t.Helper()
	compress = false
	t.Cleanup(func() { compress = true })
}

func TestRender(t *testing.T) {
	uncompressed(t)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testDocument()))

	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, out, "ARX-123456-789")
	assert.Contains(t, out, "Kitchen Remodeling")
	assert.Contains(t, out, "Jordan Lee")
	assert.Contains(t, out, "kitchen.jpg")
	assert.Contains(t, out, "Promotion ARX25")
	assert.NotContains(t, out, SectionErrorText)
}

func TestRender_WithoutPromo(t *testing.T) {
	uncompressed(t)

	doc := testDocument()
	doc.Promo = nil
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc))
	assert.NotContains(t, buf.String(), "Promotion ")
}

func TestRender_SectionPanicIsContained(t *testing.T) {
	uncompressed(t)

	secs := []section{
		{"header", renderHeader},
		{"broken", func(*page, Document) { panic("boom") }},
		{"customer", renderCustomer},
	}
	var buf bytes.Buffer
	require.NoError(t, render(&buf, testDocument(), secs))

	out := buf.String()
	assert.Contains(t, out, SectionErrorText)
	assert.Contains(t, out, "Jordan Lee", "sections after the failure still render")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Arxen-Estimate-ARX-123456-789.pdf", Filename("ARX-123456-789"))
}
