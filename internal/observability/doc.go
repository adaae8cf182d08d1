// Package observability builds the structured zap logger used across the
// service and annotates it with request-scoped fields.
package observability
