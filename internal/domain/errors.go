// Package domain holds the quote catalog model and its error taxonomy.
// Errors here describe business outcomes; adapters translate them to
// transport codes.
package domain

import (
	"errors"
	"fmt"
)

// Sentinels. Match with errors.Is or the Is* helpers.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyLiked = errors.New("already liked")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("unavailable")
)

// ErrorKind classifies an error for transport mapping.
type ErrorKind int

// Kinds. KindInternal covers anything unrecognised.
const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindAlreadyLiked
	KindValidation
	KindConflict
	KindUnavailable
)

// kinds is checked in order; ErrAlreadyLiked comes first so a duplicate like
// is never reported as a plain conflict.
var kinds = []struct {
	sentinel error
	kind     ErrorKind
	name     string
}{
	{ErrAlreadyLiked, KindAlreadyLiked, "already_liked"},
	{ErrNotFound, KindNotFound, "not_found"},
	{ErrValidation, KindValidation, "validation"},
	{ErrConflict, KindConflict, "conflict"},
	{ErrUnavailable, KindUnavailable, "unavailable"},
}

func (k ErrorKind) String() string {
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}

	return "internal"
}

// Kind walks the wrap chain of err and reports its kind.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	for _, e := range kinds {
		if errors.Is(err, e.sentinel) {
			return e.kind
		}
	}

	return KindInternal
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError reports that entity id does not exist. id may be empty.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// AlreadyLikedError is a second like from the same visitor.
type AlreadyLikedError struct {
	QuoteID   string
	VisitorID string
}

func (e *AlreadyLikedError) Error() string {
	return fmt.Sprintf("visitor %q already liked quote %q", e.VisitorID, e.QuoteID)
}

func (e *AlreadyLikedError) Unwrap() error { return ErrAlreadyLiked }

// NewAlreadyLikedError reports a duplicate like of quoteID by visitorID.
func NewAlreadyLikedError(quoteID, visitorID string) error {
	return &AlreadyLikedError{QuoteID: quoteID, VisitorID: visitorID}
}

// ConflictError is a state clash other than a duplicate like.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError reports a conflict on entity.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError is a rejected input. Field is the JSON name when known.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError reports that field failed with message.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UnavailableError is a dependency that could not serve the request.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("service %q unavailable", e.Service)
	}

	return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// NewUnavailableError reports that service is down or unreachable.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyLiked reports whether err is or wraps ErrAlreadyLiked.
func IsAlreadyLiked(err error) bool { return errors.Is(err, ErrAlreadyLiked) }

// IsConflict reports whether err is or wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation reports whether err is or wraps ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnavailable reports whether err is or wraps ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
