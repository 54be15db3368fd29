package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for type checking
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrResolve      = errors.New("resolution failed")
	ErrParse        = errors.New("parse failed")
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError indicates a stored object doesn't exist.
type NotFoundError struct {
	Resource string // "file", "blob", "document"
	ID       string // Path, object identifier or document ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AuthError indicates the credential was rejected by the content store.
// Callers should force re-authentication instead of retrying.
type AuthError struct {
	Status int
	URL    string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("credential rejected (status %d) for %s", e.Status, e.URL)
	}
	return "credential rejected"
}

func (e *AuthError) Unwrap() error {
	return ErrUnauthorized
}

// StatusError is a non-success response from the content store that is
// neither an authentication failure nor a missing object.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content store returned %d for %s", e.Status, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrResolve
}

// DescriptorError indicates a malformed content descriptor, e.g. a large
// object without an object identifier.
type DescriptorError struct {
	Path    string
	Message string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("bad descriptor for %s: %s", e.Path, e.Message)
}

func (e *DescriptorError) Unwrap() error {
	return ErrResolve
}

// ResolveError identifies the reference that aborted a document rewrite.
type ResolveError struct {
	Kind    string // "script", "stylesheet", "entry"
	Locator string // As written in the markup
	Path    string // Normalized store path
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to inline %s %s (%s): %v", e.Kind, e.Locator, e.Path, e.Err)
}

// Unwrap exposes both the cause and ErrResolve so callers can match either.
func (e *ResolveError) Unwrap() []error {
	return []error{ErrResolve, e.Err}
}

// ParseError indicates the entry document isn't usable markup.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid document: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("invalid document: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// ValidationError indicates invalid user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Helper constructors for common cases

func FileNotFound(path string) error {
	return &NotFoundError{Resource: "file", ID: path}
}

func DocumentNotFound(id string) error {
	return &NotFoundError{Resource: "document", ID: id}
}

func InvalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuth checks if an error is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsResolve checks if an error is a resolution failure.
func IsResolve(err error) bool {
	return errors.Is(err, ErrResolve)
}

// IsParse checks if an error is a parse failure.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
