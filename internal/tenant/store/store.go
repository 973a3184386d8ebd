// Package store persists tenants and their evaluation settings.
package store

import "shiftguard/pkg/platform/sentinel"

// ErrNotFound is returned when a tenant does not exist.
var ErrNotFound = sentinel.ErrNotFound
