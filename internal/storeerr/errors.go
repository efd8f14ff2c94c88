// Package storeerr defines the error taxonomy of the bookstore persistence
// core. Integrity enforcement and the session manager classify failures into
// these types before they surface to callers; nothing in the core retries
// automatically.
package storeerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the constraint class a mutation violated.
type Kind string

const (
	InvalidEnumValue     Kind = "invalid_enum_value"
	RangeViolation       Kind = "range_violation"
	UniquenessViolation  Kind = "uniqueness_violation"
	ReferentialViolation Kind = "referential_violation"
	ReferencedRowInUse   Kind = "referenced_row_in_use"
)

// ConstraintViolation is returned when a write would breach a uniqueness,
// range, enum-domain, or referential rule. It always aborts the enclosing
// unit of work.
type ConstraintViolation struct {
	Kind    Kind
	Entity  string
	Field   string
	Message string
}

func (e *ConstraintViolation) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("constraint violation (%s) on %s.%s: %s", e.Kind, e.Entity, e.Field, e.Message)
	}
	return fmt.Sprintf("constraint violation (%s) on %s: %s", e.Kind, e.Entity, e.Message)
}

// Violation builds a ConstraintViolation; the helpers below cover the common kinds.
func Violation(kind Kind, entity, field, message string) *ConstraintViolation {
	return &ConstraintViolation{Kind: kind, Entity: entity, Field: field, Message: message}
}

func Enum(entity, field, message string) *ConstraintViolation {
	return Violation(InvalidEnumValue, entity, field, message)
}

func Range(entity, field, message string) *ConstraintViolation {
	return Violation(RangeViolation, entity, field, message)
}

func Unique(entity, field, message string) *ConstraintViolation {
	return Violation(UniquenessViolation, entity, field, message)
}

func Referential(entity, field, message string) *ConstraintViolation {
	return Violation(ReferentialViolation, entity, field, message)
}

func InUse(entity, message string) *ConstraintViolation {
	return Violation(ReferencedRowInUse, entity, "", message)
}

// AsConstraintViolation unwraps err into a ConstraintViolation if one is present.
func AsConstraintViolation(err error) (*ConstraintViolation, bool) {
	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}

var (
	// ErrNotFound is returned when a referenced entity is absent at read time.
	ErrNotFound = errors.New("entity not found")

	// ErrResourceExhausted is returned when no pooled connection becomes
	// available within the configured acquire timeout, or a unit of work
	// exceeds its duration bound. Retryable by the caller.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnavailable is returned when the underlying storage is unreachable.
	// Distinguishable from business-rule violations.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrStockUnavailable is returned when an order line requests more units
	// than the book has in stock. The whole order is rejected; no stock is
	// altered.
	ErrStockUnavailable = errors.New("insufficient stock")

	// ErrDiscountInactive is returned when a discount's active flag is unset
	// or its validity window has not opened yet.
	ErrDiscountInactive = errors.New("discount inactive")

	// ErrDiscountExpired is returned when a discount's validity window has
	// already closed.
	ErrDiscountExpired = errors.New("discount expired")

	// ErrOrderStateConflict is returned when an order status transition is
	// attempted from a state that does not permit it (e.g. cancelling a
	// completed order).
	ErrOrderStateConflict = errors.New("order state conflict")
)

// IsUniqueViolation reports whether err is a duplicate-key error from the
// storage engine. PostgreSQL signals SQLSTATE 23505; SQLite reports a
// "UNIQUE constraint failed" message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a referential-integrity error
// from the storage engine. PostgreSQL signals SQLSTATE 23503; SQLite reports
// a "FOREIGN KEY constraint failed" message.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23503") || strings.Contains(msg, "FOREIGN KEY constraint failed")
}

// Classify maps raw engine errors onto the taxonomy. Errors that are already
// classified pass through unchanged.
func Classify(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsConstraintViolation(err); ok {
		return err
	}
	switch {
	case IsUniqueViolation(err):
		return Unique(entity, "", err.Error())
	case IsForeignKeyViolation(err):
		return Referential(entity, "", err.Error())
	}
	return err
}
