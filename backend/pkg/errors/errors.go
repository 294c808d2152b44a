package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed-input errors, rejected
	// before any graph call is made
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuthorization represents errors from acting on another
	// user's resources
	ErrorTypeAuthorization ErrorType = "authorization"
	// ErrorTypeNotFound represents absent users/circles/botscores/freets
	ErrorTypeNotFound ErrorType = "notfound"
	// ErrorTypeConflict represents uniqueness violations (duplicate
	// botscore record, duplicate circle name)
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeGraph represents graph database I/O errors
	ErrorTypeGraph ErrorType = "graph"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation errors

// ErrEmptyUsername is returned when a username argument is the empty string.
// This is a caller error, distinct from "no such user".
var ErrEmptyUsername = NewBaseError(ErrorTypeValidation, "username must not be empty", nil)

// ErrInvalidPercentage is returned when a score or threshold is outside [0,100]
type ErrInvalidPercentage struct {
	*BaseError
	Field string
	Value int
}

func NewInvalidPercentage(field string, value int) *ErrInvalidPercentage {
	return &ErrInvalidPercentage{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("%s of %d is not a percentage", field, value), nil),
		Field:     field,
		Value:     value,
	}
}

// ErrEmptyCircleName is returned when a circle name is missing or empty
var ErrEmptyCircleName = NewBaseError(ErrorTypeValidation, "circle name must not be empty", nil)

// ErrEmptyFreetBody is returned when a freet body is missing or empty
var ErrEmptyFreetBody = NewBaseError(ErrorTypeValidation, "freet body must not be empty", nil)

// ErrMemberNotFollower is returned when a circle member is not currently a
// follower of the circle's creator
type ErrMemberNotFollower struct {
	*BaseError
	Creator string
	Member  string
}

func NewMemberNotFollower(creator, member string) *ErrMemberNotFollower {
	return &ErrMemberNotFollower{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("%s does not follow %s", member, creator), nil),
		Creator:   creator,
		Member:    member,
	}
}

// ErrUnknownCircleTag is returned when a freet is tagged with a circle its
// author does not have
type ErrUnknownCircleTag struct {
	*BaseError
	Author string
	Name   string
}

func NewUnknownCircleTag(author, name string) *ErrUnknownCircleTag {
	return &ErrUnknownCircleTag{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("%s does not have a circle named %s", author, name), nil),
		Author:    author,
		Name:      name,
	}
}

// Authorization errors

// ErrNotCircleCreator is returned when a user mutates a circle they did not create
type ErrNotCircleCreator struct {
	*BaseError
	Username string
	Circle   string
}

func NewNotCircleCreator(username, circle string) *ErrNotCircleCreator {
	return &ErrNotCircleCreator{
		BaseError: NewBaseError(ErrorTypeAuthorization, fmt.Sprintf("circle %s does not belong to %s", circle, username), nil),
		Username:  username,
		Circle:    circle,
	}
}

// ErrNotFreetAuthor is returned when a user deletes a freet they did not author
type ErrNotFreetAuthor struct {
	*BaseError
	Username string
	FreetID  string
}

func NewNotFreetAuthor(username, freetID string) *ErrNotFreetAuthor {
	return &ErrNotFreetAuthor{
		BaseError: NewBaseError(ErrorTypeAuthorization, fmt.Sprintf("freet %s does not belong to %s", freetID, username), nil),
		Username:  username,
		FreetID:   freetID,
	}
}

// Not-found errors

// ErrUserNotFound is returned when a user does not exist
type ErrUserNotFound struct {
	*BaseError
	Username string
}

func NewUserNotFound(username string) *ErrUserNotFound {
	return &ErrUserNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("user not found: %s", username), nil),
		Username:  username,
	}
}

// ErrCircleNotFound is returned when a circle does not exist for a creator
type ErrCircleNotFound struct {
	*BaseError
	Creator string
	Name    string
}

func NewCircleNotFound(creator, name string) *ErrCircleNotFound {
	return &ErrCircleNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("circle not found: %s/%s", creator, name), nil),
		Creator:   creator,
		Name:      name,
	}
}

// ErrBotscoreNotFound is returned when a user has no botscore record
type ErrBotscoreNotFound struct {
	*BaseError
	Username string
}

func NewBotscoreNotFound(username string) *ErrBotscoreNotFound {
	return &ErrBotscoreNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("botscore not found: %s", username), nil),
		Username:  username,
	}
}

// ErrFreetNotFound is returned when a freet does not exist
type ErrFreetNotFound struct {
	*BaseError
	FreetID string
}

func NewFreetNotFound(freetID string) *ErrFreetNotFound {
	return &ErrFreetNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("freet not found: %s", freetID), nil),
		FreetID:   freetID,
	}
}

// Conflict errors

// ErrDuplicateCircleName is returned when a creator already has a circle
// with the requested name
type ErrDuplicateCircleName struct {
	*BaseError
	Creator string
	Name    string
}

func NewDuplicateCircleName(creator, name string) *ErrDuplicateCircleName {
	return &ErrDuplicateCircleName{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("%s already has a circle named %s", creator, name), nil),
		Creator:   creator,
		Name:      name,
	}
}

// ErrDuplicateUsername is returned when a username is already registered
type ErrDuplicateUsername struct {
	*BaseError
	Username string
}

func NewDuplicateUsername(username string) *ErrDuplicateUsername {
	return &ErrDuplicateUsername{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("username already taken: %s", username), nil),
		Username:  username,
	}
}

// Graph errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

type typedError interface {
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if an error is of a specific type. Errors embedding
// BaseError match through method promotion; wrapped errors are unwrapped.
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if te, ok := err.(typedError); ok {
			return te.errorType() == errType
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Only graph I/O failures are transient; everything else reflects the
	// request itself.
	return IsErrorType(err, ErrorTypeGraph)
}
