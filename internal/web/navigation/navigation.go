// Package navigation provides the page navigation state, breadcrumbs and
// the permission filtered admin menu.
package navigation

import "github.com/spark-admin/spark-admin/internal/permission"

// Sections of the menu.
const (
	SectionDashboard = "dashboard"
	SectionAdmin     = "admin"
)

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// MenuItem is one link of the side menu. It is shown when the user holds
// Permission, an empty Permission is always shown.
type MenuItem struct {
	Title      string
	URL        string
	Section    string
	Page       string
	Permission string
}

// Menu is the full side menu in display order.
var Menu = []MenuItem{
	{Title: "Dashboard", URL: "/dashboard", Section: SectionDashboard, Page: "dashboard", Permission: permission.ViewDashboard},
	{Title: "Roles", URL: "/admin/role", Section: SectionAdmin, Page: "role", Permission: permission.ManageRoles},
	{Title: "Permission Matrix", URL: "/admin/role/matrix", Section: SectionAdmin, Page: "matrix", Permission: permission.ManageRoles},
	{Title: "Users", URL: "/admin/user", Section: SectionAdmin, Page: "user", Permission: permission.ManageUsers},
	{Title: "Activity Log", URL: "/admin/activity", Section: SectionAdmin, Page: "activity", Permission: permission.ViewActivityLogs},
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string
	ActivePage    string
	Breadcrumbs   []BreadcrumbItem
	PageTitle     string
}

// NewContext creates a new navigation context.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   make([]BreadcrumbItem, 0),
	}
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// IsActive checks if the given section and page match the current context.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive checks if the given section is active.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}

// VisibleMenu returns the menu items allowed by has.
func VisibleMenu(has func(string) bool) []MenuItem {
	items := make([]MenuItem, 0, len(Menu))

	for _, item := range Menu {
		if item.Permission == "" || (has != nil && has(item.Permission)) {
			items = append(items, item)
		}
	}

	return items
}
