// Package permission defines the catalog of permission keys known to the
// back-office. Roles may only grant keys listed in the catalog.
package permission

// Permission keys, grouped the same way as the default catalog.
const (
	// ViewDashboard allows viewing the admin dashboard.
	ViewDashboard = "view_dashboard"
	// ViewAnalytics allows viewing dashboard charts and statistics.
	ViewAnalytics = "view_analytics"

	// ManageUsers allows listing and editing user accounts.
	ManageUsers = "manage_users"
	// ManageRoles allows creating, editing and deleting roles.
	ManageRoles = "manage_roles"
	// AssignRoles allows changing the role of a user account.
	AssignRoles = "assign_roles"

	// ManageEvents allows managing college events.
	ManageEvents = "manage_events"
	// ManageMessages allows triaging contact messages.
	ManageMessages = "manage_messages"
	// ManageAnnouncements allows publishing announcements.
	ManageAnnouncements = "manage_announcements"

	// ViewReports allows viewing reports.
	ViewReports = "view_reports"
	// ExportData allows exporting report data.
	ExportData = "export_data"
	// ViewActivityLogs allows reading the audit trail.
	ViewActivityLogs = "view_activity_logs"

	// ManageSettings allows changing application settings.
	ManageSettings = "manage_settings"
	// ManageEmail allows changing email delivery settings.
	ManageEmail = "manage_email"
	// ManagePayments allows managing payments and refunds.
	ManagePayments = "manage_payments"
)

// Entry is a single permission key with its display label.
type Entry struct {
	Key   string
	Label string
}

// Category groups related permissions for display.
type Category struct {
	Name        string
	Permissions []Entry
}

// Catalog is an ordered, immutable set of permission categories.
type Catalog struct {
	categories []Category
	keys       []string
	position   map[string]int
	labels     map[string]string
}

// NewCatalog builds a catalog from the given categories. Declaration order
// of categories and entries is kept. A key declared twice keeps its first
// position.
func NewCatalog(categories ...Category) *Catalog {
	c := &Catalog{
		categories: categories,
		position:   make(map[string]int),
		labels:     make(map[string]string),
	}

	for _, cat := range categories {
		for _, e := range cat.Permissions {
			if _, dup := c.position[e.Key]; dup {
				continue
			}

			c.position[e.Key] = len(c.keys)
			c.labels[e.Key] = e.Label
			c.keys = append(c.keys, e.Key)
		}
	}

	return c
}

// Default returns the built-in SPARK permission catalog.
func Default() *Catalog {
	return NewCatalog(
		Category{Name: "Dashboard", Permissions: []Entry{
			{ViewDashboard, "View Dashboard"},
			{ViewAnalytics, "View Analytics"},
		}},
		Category{Name: "User Management", Permissions: []Entry{
			{ManageUsers, "Manage Users"},
			{ManageRoles, "Manage Roles"},
			{AssignRoles, "Assign Roles"},
		}},
		Category{Name: "Content Management", Permissions: []Entry{
			{ManageEvents, "Manage Events"},
			{ManageMessages, "Manage Contact Messages"},
			{ManageAnnouncements, "Manage Announcements"},
		}},
		Category{Name: "Reports & Analytics", Permissions: []Entry{
			{ViewReports, "View Reports"},
			{ExportData, "Export Data"},
			{ViewActivityLogs, "View Activity Logs"},
		}},
		Category{Name: "System Settings", Permissions: []Entry{
			{ManageSettings, "Manage Settings"},
			{ManageEmail, "Manage Email Configuration"},
			{ManagePayments, "Manage Payments & Refunds"},
		}},
	)
}

// Categories returns the catalog categories in declaration order.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// Keys returns every permission key in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)

	return out
}

// Contains reports whether key is a known permission.
func (c *Catalog) Contains(key string) bool {
	_, ok := c.position[key]
	return ok
}

// Label returns the display label of key, or the key itself if unknown.
func (c *Catalog) Label(key string) string {
	if l, ok := c.labels[key]; ok {
		return l
	}

	return key
}

// Unknown returns the keys that are not part of the catalog, in input order.
func (c *Catalog) Unknown(keys []string) []string {
	var unknown []string

	for _, k := range keys {
		if !c.Contains(k) {
			unknown = append(unknown, k)
		}
	}

	return unknown
}

// Normalize deduplicates keys and orders them by catalog position.
// Unknown keys are dropped.
func (c *Catalog) Normalize(keys []string) []string {
	seen := make([]bool, len(c.keys))

	for _, k := range keys {
		if pos, ok := c.position[k]; ok {
			seen[pos] = true
		}
	}

	out := make([]string, 0, len(keys))
	for pos, ok := range seen {
		if ok {
			out = append(out, c.keys[pos])
		}
	}

	return out
}
