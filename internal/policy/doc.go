// Package policy decides whether a principal may call a route.
//
// Each route identifier maps to a RoutePolicy declared once at startup:
// either public, authenticated-only, or restricted to a set of roles.
// Evaluation is a pure function of the route table and the principal and
// always yields an explicit Decision. Routes missing from the table are
// denied.
package policy
