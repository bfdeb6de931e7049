// Package api implements the HTTP handlers for task submission,
// cancellation, and queue introspection, mapping domain and queue errors
// onto client-safe responses.
package api
