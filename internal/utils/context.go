// Package utils provides general-purpose helper utilities used across
// different parts of the application: type-safe context keys, JSON response
// writing, JWT token generation and validation, and epoch-millisecond time
// helpers.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

// StaffIDCtxKey is the key used to store the authenticated staff identifier
// in the context. Set by the auth middleware; read by handlers via
// GetStaffIDFromContext. Identity always travels explicitly through the
// context, there is no ambient "current staff" state anywhere in the
// application.
var StaffIDCtxKey = contextKey("staffID")

// GetStaffIDFromContext retrieves the staff identifier from the context.
//
// Returns the staff ID of type int64 and an ok flag:
//   - ok == true  : value is found and has the correct int64 type
//   - ok == false : value is missing or has an unexpected type
func GetStaffIDFromContext(ctx context.Context) (int64, bool) {
	staffID, ok := ctx.Value(StaffIDCtxKey).(int64)
	return staffID, ok
}
