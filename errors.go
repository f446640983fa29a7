package loom

import (
	"errors"
	"fmt"
	"reflect"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a lookup expecting a row finds none.
	ErrNotFound = errors.New("loom: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns multiple results.
	ErrNotSingular = errors.New("loom: entity not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("loom: cannot start a transaction within a transaction")

	// ErrEntityRequired is matched by every EntityRequiredError.
	ErrEntityRequired = errors.New("loom: entity required")

	// ErrRelationNotFound is matched by every RelationNotFoundError.
	ErrRelationNotFound = errors.New("loom: relation not found")

	// ErrMissingIdentity is matched by every MissingIdentityError.
	ErrMissingIdentity = errors.New("loom: missing identity")

	// ErrUnsupportedLiteral is matched by every UnsupportedLiteralError.
	ErrUnsupportedLiteral = errors.New("loom: unsupported literal")

	// ErrConversion is matched by every ConversionError.
	ErrConversion = errors.New("loom: conversion failed")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("loom: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives multiple results.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("loom: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("loom: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the result count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// EntityRequiredError is returned when a value whose type is not a
// registered entity is passed where an entity was expected.
type EntityRequiredError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *EntityRequiredError) Error() string {
	if e.Type == nil {
		return "loom: entity required, got <nil>"
	}
	return fmt.Sprintf("loom: %s is not a registered entity", e.Type)
}

// Is reports whether the target error matches EntityRequiredError.
func (e *EntityRequiredError) Is(err error) bool {
	return err == ErrEntityRequired
}

// NewEntityRequiredError returns a new EntityRequiredError for the given type.
func NewEntityRequiredError(t reflect.Type) *EntityRequiredError {
	return &EntityRequiredError{Type: t}
}

// IsEntityRequired returns true if the error is an EntityRequiredError.
func IsEntityRequired(err error) bool {
	if err == nil {
		return false
	}
	var e *EntityRequiredError
	return errors.As(err, &e)
}

// RelationNotFoundError is returned when a relation name or path does not
// resolve against the metadata of an entity.
type RelationNotFoundError struct {
	Entity string // Entity the lookup started from
	Path   string // Relation name or dot separated path
}

// Error returns the error string.
func (e *RelationNotFoundError) Error() string {
	return fmt.Sprintf("loom: relation %q not found on %s", e.Path, e.Entity)
}

// Is reports whether the target error matches RelationNotFoundError.
func (e *RelationNotFoundError) Is(err error) bool {
	return err == ErrRelationNotFound
}

// NewRelationNotFoundError returns a new RelationNotFoundError.
func NewRelationNotFoundError(entity, path string) *RelationNotFoundError {
	return &RelationNotFoundError{Entity: entity, Path: path}
}

// IsRelationNotFound returns true if the error is a RelationNotFoundError.
func IsRelationNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationNotFoundError
	return errors.As(err, &e)
}

// MissingIdentityError is returned when a primary key is required from an
// object whose key field is not set.
type MissingIdentityError struct {
	Entity string
	Column string
}

// Error returns the error string.
func (e *MissingIdentityError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("loom: %s has no identity (key column %q is not set)", e.Entity, e.Column)
	}
	return fmt.Sprintf("loom: %s has no identity", e.Entity)
}

// Is reports whether the target error matches MissingIdentityError.
func (e *MissingIdentityError) Is(err error) bool {
	return err == ErrMissingIdentity
}

// NewMissingIdentityError returns a new MissingIdentityError.
func NewMissingIdentityError(entity, column string) *MissingIdentityError {
	return &MissingIdentityError{Entity: entity, Column: column}
}

// IsMissingIdentity returns true if the error is a MissingIdentityError.
func IsMissingIdentity(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingIdentityError
	return errors.As(err, &e)
}

// ConversionError is returned when a stored value cannot be converted to
// the semantic type of the field it is assigned to.
type ConversionError struct {
	Column string       // Column alias or name being assigned
	Target reflect.Type // Field type
	Value  any          // Value returned by the driver
	Err    error        // Underlying error, optional
}

// Error returns the error string.
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("loom: cannot convert column %q value %v (%T) to %s", e.Column, e.Value, e.Value, e.Target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ConversionError.
func (e *ConversionError) Is(err error) bool {
	return err == ErrConversion
}

// IsConversionError returns true if the error is a ConversionError.
func IsConversionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConversionError
	return errors.As(err, &e)
}

// UnsupportedLiteralError is returned when a Go value has no literal
// representation.
type UnsupportedLiteralError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *UnsupportedLiteralError) Error() string {
	return fmt.Sprintf("loom: unsupported literal type %v", e.Type)
}

// Is reports whether the target error matches UnsupportedLiteralError.
func (e *UnsupportedLiteralError) Is(err error) bool {
	return err == ErrUnsupportedLiteral
}

// NewUnsupportedLiteralError returns a new UnsupportedLiteralError for the value.
func NewUnsupportedLiteralError(v any) *UnsupportedLiteralError {
	return &UnsupportedLiteralError{Type: reflect.TypeOf(v)}
}

// IsUnsupportedLiteral returns true if the error is an UnsupportedLiteralError.
func IsUnsupportedLiteral(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedLiteralError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("loom: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}
