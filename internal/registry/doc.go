// Package registry implements the role & permission registry of the SPARK
// back-office.
//
// The registry owns role records and enforces their invariants:
//   - at most one role is the default role; making a role default clears the
//     previous default inside the same store transaction
//   - a role referenced by a user cannot be deleted
//   - a role only grants permission keys listed in the permission catalog
//
// Every mutating operation runs as a single store transaction and, after it
// committed, writes one record to the audit sink. An audit failure does not
// undo the mutation: the operation returns its result together with an error
// matching ErrAuditWarning.
//
// Callers are expected to be authenticated and authorized already; the acting
// principal is passed in as an Actor.
//
// Example usage:
//
//	reg := registry.New(roledb.New(db), activity.New(db), permission.Default())
//
//	role, err := reg.Create(ctx, registry.Input{
//	    Name:        "Reviewer",
//	    Permissions: []string{permission.ViewReports, permission.ExportData},
//	}, actor)
//	if registry.IsAuditWarning(err) {
//	    log.Warn().Err(err).Msg("role created without audit record")
//	}
package registry
