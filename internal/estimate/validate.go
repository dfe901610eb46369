package estimate

import (
	"regexp"
	"strings"

	"arxenbot/internal/catalog"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// FieldError is an inline validation message for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors returns the validation errors blocking step. It never modifies data.
func Errors(step Step, data FormData) []FieldError {
	switch step {
	case StepServices:
		return servicesErrors(data.Services)
	case StepDetails:
		return detailsErrors(data.ProjectDetails)
	case StepContact:
		return contactErrors(data.ContactInfo)
	default:
		return nil
	}
}

func servicesErrors(s Services) []FieldError {
	for _, id := range s.Selected {
		if _, ok := catalog.Lookup(id); ok {
			return nil
		}
	}
	return []FieldError{{Field: "services.selected", Message: "Select at least one service."}}
}

func detailsErrors(d ProjectDetails) []FieldError {
	var errs []FieldError
	if blank(d.Description) {
		errs = append(errs, FieldError{Field: "project_details.description", Message: "Describe your project."})
	}
	if blank(d.Urgency) {
		errs = append(errs, FieldError{Field: "project_details.urgency", Message: "Choose how soon you need the work done."})
	}
	if blank(d.Scope) {
		errs = append(errs, FieldError{Field: "project_details.scope", Message: "Choose the project scope."})
	}
	return errs
}

func contactErrors(c ContactInfo) []FieldError {
	var errs []FieldError
	if blank(c.Name) {
		errs = append(errs, FieldError{Field: "contact_info.name", Message: "Enter your name."})
	}
	switch {
	case blank(c.Email):
		errs = append(errs, FieldError{Field: "contact_info.email", Message: "Enter your email address."})
	case !emailRe.MatchString(strings.TrimSpace(c.Email)):
		errs = append(errs, FieldError{Field: "contact_info.email", Message: "Enter a valid email address."})
	}

	switch c.PreferredContact {
	case ContactEmail:
	case ContactPhone, ContactText:
		if blank(c.Phone) {
			errs = append(errs, FieldError{Field: "contact_info.phone", Message: "Enter a phone number so we can reach you."})
		}
	case "":
		errs = append(errs, FieldError{Field: "contact_info.preferred_contact", Message: "Choose how we should contact you."})
	default:
		errs = append(errs, FieldError{Field: "contact_info.preferred_contact", Message: "Choose email, phone or text."})
	}

	if !blank(c.Phone) && !phoneRe.MatchString(strings.TrimSpace(c.Phone)) {
		errs = append(errs, FieldError{Field: "contact_info.phone", Message: "Enter a valid 10-digit phone number."})
	}
	if !blank(c.Zip) && !zipRe.MatchString(strings.TrimSpace(c.Zip)) {
		errs = append(errs, FieldError{Field: "contact_info.zip", Message: "Enter a 5-digit ZIP code."})
	}
	return errs
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
