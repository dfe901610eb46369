// Package estimate implements the four-step "Free Estimate" wizard: the form
// data, the step gating rules and the values derived along the way.
package estimate

import (
	"encoding/json"
	"fmt"
	"slices"

	"arxenbot/internal/catalog"
)

// Services is step 1.
type Services struct {
	Selected     []string             `json:"selected"`
	PropertyType catalog.PropertyType `json:"property_type,omitempty"`
	Other        string               `json:"other,omitempty"`
}

// ProjectDetails is step 2.
type ProjectDetails struct {
	Description   string `json:"description"`
	Urgency       string `json:"urgency"`
	Scope         string `json:"scope"`
	SquareFootage string `json:"square_footage,omitempty"`
	Budget        string `json:"budget,omitempty"`
}

// Timeline is collected alongside the project details.
type Timeline struct {
	PreferredStart string `json:"preferred_start,omitempty"`
	Flexibility    string `json:"flexibility,omitempty"`
}

// FileRef describes an attachment chosen in the browser. Attachments never
// leave the client in drafts.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Contact methods.
const (
	ContactEmail = "email"
	ContactPhone = "phone"
	ContactText  = "text"
)

// ContactInfo is step 3.
type ContactInfo struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	PreferredContact string `json:"preferred_contact"`
	BestTime         string `json:"best_time,omitempty"`
	Address          string `json:"address,omitempty"`
	City             string `json:"city,omitempty"`
	Zip              string `json:"zip,omitempty"`
	PromoCode        string `json:"promo_code,omitempty"`
}

// FormData is the whole wizard state.
type FormData struct {
	Services       Services       `json:"services"`
	ProjectDetails ProjectDetails `json:"project_details"`
	Timeline       Timeline       `json:"timeline"`
	Files          []FileRef      `json:"files,omitempty"`
	ContactInfo    ContactInfo    `json:"contact_info"`
	Notes          string         `json:"notes,omitempty"`
}

// Section names a FormData sub-record for Merge.
type Section string

const (
	SectionServices       Section = "services"
	SectionProjectDetails Section = "project_details"
	SectionTimeline       Section = "timeline"
	SectionContactInfo    Section = "contact_info"
)

// Merge shallow-merges a JSON object into one section: fields present in patch
// overwrite, absent fields are kept. Derived values are recomputed afterwards.
// A patch that fails to decode leaves the form untouched.
func (f *FormData) Merge(section Section, patch []byte) error {
	var err error
	switch section {
	case SectionServices:
		next := f.Services
		next.Selected = slices.Clone(next.Selected)
		err = mergeSection(&f.Services, next, patch)
	case SectionProjectDetails:
		err = mergeSection(&f.ProjectDetails, f.ProjectDetails, patch)
	case SectionTimeline:
		err = mergeSection(&f.Timeline, f.Timeline, patch)
	case SectionContactInfo:
		err = mergeSection(&f.ContactInfo, f.ContactInfo, patch)
	default:
		return fmt.Errorf("unknown form section %q", section)
	}
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", section, err)
	}
	f.derive()
	return nil
}

// mergeSection decodes patch over next and stores it in dst only on success.
func mergeSection[T any](dst *T, next T, patch []byte) error {
	if err := json.Unmarshal(patch, &next); err != nil {
		return err
	}
	*dst = next
	return nil
}

// derive recomputes values that follow from user input.
func (f *FormData) derive() {
	f.Services.PropertyType = catalog.PropertyTypeOf(f.Services.Selected)
	f.ContactInfo.PromoCode = NormalizePromo(f.ContactInfo.PromoCode)
}

// Snapshot returns a deep copy suitable for saving as a draft. Attachments are
// dropped because they cannot be serialised.
func (f FormData) Snapshot() FormData {
	f.Services.Selected = append([]string(nil), f.Services.Selected...)
	f.Files = nil
	return f
}

// ServiceLabels returns display labels for the selected services.
func (f FormData) ServiceLabels() []string {
	return catalog.Labels(f.Services.Selected)
}
