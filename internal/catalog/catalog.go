// Package catalog lists the services offered in the estimate wizard.
package catalog

import "sort"

// Category is the property classification a service belongs to.
type Category string

const (
	Residential Category = "residential"
	Commercial  Category = "commercial"
)

// PropertyType is derived from the selected services. Empty means nothing selected.
type PropertyType string

const (
	PropertyNone        PropertyType = ""
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
	PropertyMixed       PropertyType = "mixed"
)

// IconKind is a named icon. Clients render it from their own icon set; the
// server only guarantees the name is one of the known icons.
type IconKind struct {
	Name string `json:"name"`
}

// DefaultIcon is used for unknown icon names.
var DefaultIcon = IconKind{Name: "hammer"}

var icons = map[string]IconKind{
	"kitchen":     {Name: "kitchen"},
	"bath":        {Name: "bath"},
	"stairs":      {Name: "stairs"},
	"home-plus":   {Name: "home-plus"},
	"layers":      {Name: "layers"},
	"roof":        {Name: "roof"},
	"sun":         {Name: "sun"},
	"paintbrush":  {Name: "paintbrush"},
	"window":      {Name: "window"},
	"wrench":      {Name: "wrench"},
	"building":    {Name: "building"},
	"store":       {Name: "store"},
	"utensils":    {Name: "utensils"},
	"key":         {Name: "key"},
	"warehouse":   {Name: "warehouse"},
	"stethoscope": {Name: "stethoscope"},
	"accessible":  {Name: "accessible"},
	"hammer":      DefaultIcon,
}

// ResolveIcon returns the icon registered under name, or DefaultIcon.
func ResolveIcon(name string) IconKind {
	if icon, ok := icons[name]; ok {
		return icon
	}
	return DefaultIcon
}

// Service is one selectable service.
type Service struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
	Icon     IconKind `json:"icon"`
}

var services = []Service{
	{ID: "kitchen-remodeling", Label: "Kitchen Remodeling", Category: Residential, Icon: ResolveIcon("kitchen")},
	{ID: "bathroom-remodeling", Label: "Bathroom Remodeling", Category: Residential, Icon: ResolveIcon("bath")},
	{ID: "basement-finishing", Label: "Basement Finishing", Category: Residential, Icon: ResolveIcon("stairs")},
	{ID: "home-additions", Label: "Home Additions", Category: Residential, Icon: ResolveIcon("home-plus")},
	{ID: "flooring", Label: "Flooring", Category: Residential, Icon: ResolveIcon("layers")},
	{ID: "roofing", Label: "Roofing", Category: Residential, Icon: ResolveIcon("roof")},
	{ID: "decks-patios", Label: "Decks & Patios", Category: Residential, Icon: ResolveIcon("sun")},
	{ID: "painting", Label: "Interior & Exterior Painting", Category: Residential, Icon: ResolveIcon("paintbrush")},
	{ID: "windows-doors", Label: "Windows & Doors", Category: Residential, Icon: ResolveIcon("window")},
	{ID: "home-repairs", Label: "Home Repairs", Category: Residential, Icon: ResolveIcon("wrench")},
	{ID: "office-renovation", Label: "Office Renovation", Category: Commercial, Icon: ResolveIcon("building")},
	{ID: "retail-buildout", Label: "Retail Build-Out", Category: Commercial, Icon: ResolveIcon("store")},
	{ID: "restaurant-construction", Label: "Restaurant Construction", Category: Commercial, Icon: ResolveIcon("utensils")},
	{ID: "tenant-improvements", Label: "Tenant Improvements", Category: Commercial, Icon: ResolveIcon("key")},
	{ID: "commercial-roofing", Label: "Commercial Roofing", Category: Commercial, Icon: ResolveIcon("roof")},
	{ID: "industrial", Label: "Warehouse & Industrial", Category: Commercial, Icon: ResolveIcon("warehouse")},
	{ID: "medical-office", Label: "Medical & Dental Offices", Category: Commercial, Icon: ResolveIcon("stethoscope")},
	{ID: "ada-compliance", Label: "ADA Compliance", Category: Commercial, Icon: ResolveIcon("accessible")},
}

var byID = func() map[string]Service {
	m := make(map[string]Service, len(services))
	for _, s := range services {
		m[s.ID] = s
	}
	return m
}()

// All returns every service in display order.
func All() []Service {
	return append([]Service(nil), services...)
}

// Lookup returns the service with the given id.
func Lookup(id string) (Service, bool) {
	s, ok := byID[id]
	return s, ok
}

// Labels returns display labels for ids, skipping unknown ids.
func Labels(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s.Label)
		}
	}
	return out
}

// PropertyTypeOf derives the property classification for the selected services.
// Unknown ids are ignored.
func PropertyTypeOf(ids []string) PropertyType {
	seen := make(map[Category]bool, 2)
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			seen[s.Category] = true
		}
	}
	switch {
	case seen[Residential] && seen[Commercial]:
		return PropertyMixed
	case seen[Residential]:
		return PropertyResidential
	case seen[Commercial]:
		return PropertyCommercial
	default:
		return PropertyNone
	}
}

// IconNames returns the registered icon names, sorted.
func IconNames() []string {
	names := make([]string, 0, len(icons))
	for name := range icons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
