// Package acl keeps upstream quote providers from leaking into the domain.
//
// Upstream DTOs stay unexported beside the adapter that decodes them, and
// items that fail translation are dropped rather than imported half-formed.
// [TranslateError] turns a 404 into [domain.ErrNotFound]; every other
// failure, including [clients.ErrCircuitOpen] and
// [clients.ErrMaxRetriesExceeded], becomes [domain.ErrUnavailable].
package acl
