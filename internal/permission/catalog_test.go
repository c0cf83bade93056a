package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	require.Len(t, c.Categories(), 5)
	assert.Equal(t, "Dashboard", c.Categories()[0].Name)
	assert.Equal(t, "System Settings", c.Categories()[4].Name)

	keys := c.Keys()
	require.Len(t, keys, 14)
	assert.Equal(t, ViewDashboard, keys[0])
	assert.Equal(t, ManagePayments, keys[len(keys)-1])

	for _, k := range keys {
		assert.True(t, c.Contains(k), k)
	}

	assert.False(t, c.Contains("delete_everything"))
}

func TestKeysReturnsCopy(t *testing.T) {
	c := Default()

	keys := c.Keys()
	keys[0] = "mutated"

	assert.Equal(t, ViewDashboard, c.Keys()[0])
}

func TestLabel(t *testing.T) {
	c := Default()

	assert.Equal(t, "Export Data", c.Label(ExportData))
	assert.Equal(t, "nope", c.Label("nope"))
}

func TestUnknown(t *testing.T) {
	c := Default()

	assert.Nil(t, c.Unknown([]string{ViewReports, ExportData}))
	assert.Equal(t, []string{"view_report", "x"}, c.Unknown([]string{"view_report", ViewReports, "x"}))
}

func TestNormalize(t *testing.T) {
	c := Default()

	testCases := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"catalog order", []string{ExportData, ViewDashboard, ManageRoles}, []string{ViewDashboard, ManageRoles, ExportData}},
		{"duplicates", []string{ExportData, ExportData, ViewReports}, []string{ViewReports, ExportData}},
		{"unknown dropped", []string{"bogus", ManageEvents}, []string{ManageEvents}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Normalize(tc.in))
		})
	}
}

func TestNewCatalogDuplicateKeys(t *testing.T) {
	c := NewCatalog(
		Category{Name: "A", Permissions: []Entry{{"a", "First"}, {"b", "B"}}},
		Category{Name: "B", Permissions: []Entry{{"a", "Second"}}},
	)

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, "First", c.Label("a"))
}
