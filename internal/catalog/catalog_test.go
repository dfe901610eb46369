package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServicesUseKnownIcons(t *testing.T) {
	known := make(map[string]bool)
	for _, name := range IconNames() {
		known[name] = true
	}
	ids := make(map[string]bool)
	for _, s := range All() {
		assert.True(t, known[s.Icon.Name], "service %s uses unregistered icon %q", s.ID, s.Icon.Name)
		assert.False(t, ids[s.ID], "duplicate service id %s", s.ID)
		ids[s.ID] = true
	}
}

func TestResolveIcon(t *testing.T) {
	assert.Equal(t, IconKind{Name: "kitchen"}, ResolveIcon("kitchen"))
	assert.Equal(t, DefaultIcon, ResolveIcon("unicorn"))
}

func TestPropertyTypeOf(t *testing.T) {
	tests := []struct {
		ids  []string
		want PropertyType
	}{
		{nil, PropertyNone},
		{[]string{"nope"}, PropertyNone},
		{[]string{"kitchen-remodeling"}, PropertyResidential},
		{[]string{"office-renovation", "retail-buildout"}, PropertyCommercial},
		{[]string{"roofing", "commercial-roofing"}, PropertyMixed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PropertyTypeOf(tt.ids), "%v", tt.ids)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{"Kitchen Remodeling", "Flooring"},
		Labels([]string{"kitchen-remodeling", "unknown", "flooring"}))
}
