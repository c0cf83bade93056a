// Package auth provides authentication and authorization functionality for the application.
//
// # Authentication
//
// LocalProvider handles username/password authentication against the local
// database with Argon2id password hashing. It also owns the user directory
// operations that touch role assignments:
//   - CreateUser hands out the default role when no role is chosen
//   - AssignRole locks the role row, so a concurrent role deletion either sees
//     the new assignment or the assignment fails with ErrRoleNotFound
//   - UnassignRole clears the role of a user
//
// Deactivated roles cannot be assigned. Users that already hold a role keep it
// when the role is deactivated, but it grants no permissions until it is
// activated again.
//
// # Authorization
//
// Every user has zero or one role and the role carries a set of permission
// keys (see package permission). The Service type answers permission checks:
//   - HasPermission: Check if user has a specific permission
//   - HasAnyPermission: Check if user has at least one permission from a list
//   - HasAllPermissions: Check if user has all permissions from a list
//   - GetUserPermissions: Retrieve all permissions for a user
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequirePermission: Protect routes requiring a specific permission
//   - RequireAnyPermission: Protect routes requiring any of several permissions
//   - AddPermissionsToLocals: Add user permissions to template context
//
// Example usage:
//
//	// Initialize auth service
//	authService := auth.NewService(db)
//
//	// Check permission in handler
//	hasPermission, err := authService.HasPermission(userID, permission.ManageRoles)
//
//	// Protect route with middleware
//	app.Get("/admin/role",
//	    auth.RequirePermission(authService, permission.ManageRoles),
//	    handler,
//	)
package auth
