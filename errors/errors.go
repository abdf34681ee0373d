package errors

import (
	"errors"
	"fmt"
)

// Run level errors.
var (
	ErrReindexInProgress = errors.New(`world-search: a reindex run is already in progress`)
	ErrNilSource         = errors.New(`world-search: source cannot be set to "nil"`)
	ErrNilShipper        = errors.New(`world-search: shipper cannot be set to "nil"`)
)

// EnvVarNotSetError is an error which is returned when a required env var is not set.
type EnvVarNotSetError struct {
	Var string
}

// NewEnvVarNotSetError returns an error for an envVarName whose value is not set.
func NewEnvVarNotSetError(envVarName string) *EnvVarNotSetError {
	return &EnvVarNotSetError{envVarName}
}

// Error implements the error interface.
func (e *EnvVarNotSetError) Error() string {
	return fmt.Sprintf("world-search: %s env variable not set", e.Var)
}

// AliasNotFoundError is returned when an alias that is required to exist has never been created.
type AliasNotFoundError struct {
	Alias string
}

// NewAliasNotFoundError returns an error for the given alias.
func NewAliasNotFoundError(alias string) *AliasNotFoundError {
	return &AliasNotFoundError{alias}
}

// Error implements the error interface.
func (a *AliasNotFoundError) Error() string {
	return fmt.Sprintf("alias %q is not bound to any index", a.Alias)
}

// EngineUnavailableError is returned on connectivity or timeout failures while talking to the
// search engine. Callers are expected to retry these with backoff.
type EngineUnavailableError struct {
	Op  string
	Err error
}

// NewEngineUnavailableError wraps err which happened during op.
func NewEngineUnavailableError(op string, err error) *EngineUnavailableError {
	return &EngineUnavailableError{op, err}
}

// Error implements the error interface.
func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("search engine unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

// IndexCreationError is returned when a concrete index could not be created.
type IndexCreationError struct {
	Index string
	Err   error
}

// NewIndexCreationError returns an error for the index that failed to be created.
func NewIndexCreationError(index string, err error) *IndexCreationError {
	return &IndexCreationError{index, err}
}

// Error implements the error interface.
func (i *IndexCreationError) Error() string {
	return fmt.Sprintf("failed to create index named %q: %v", i.Index, i.Err)
}

// Unwrap returns the underlying engine error.
func (i *IndexCreationError) Unwrap() error {
	return i.Err
}

// AliasSwitchError is returned when an alias could not be (re)bound. It is fatal for a run.
type AliasSwitchError struct {
	Alias string
	From  string
	To    string
	Err   error
}

// NewAliasSwitchError returns an error for a failed move of alias from one index to another.
// From is empty when the alias was being bound for the first time.
func NewAliasSwitchError(alias, from, to string, err error) *AliasSwitchError {
	return &AliasSwitchError{alias, from, to, err}
}

// Error implements the error interface.
func (a *AliasSwitchError) Error() string {
	if a.From == "" {
		return fmt.Sprintf("error binding alias %q to index %q: %v", a.Alias, a.To, a.Err)
	}
	return fmt.Sprintf("error switching alias %q from index %q to %q: %v", a.Alias, a.From, a.To, a.Err)
}

// Unwrap returns the underlying engine error.
func (a *AliasSwitchError) Unwrap() error {
	return a.Err
}

// IndexDeletionError is returned when a stale index could not be removed.
type IndexDeletionError struct {
	Index string
	Err   error
}

// NewIndexDeletionError returns an error for the index that could not be deleted.
func NewIndexDeletionError(index string, err error) *IndexDeletionError {
	return &IndexDeletionError{index, err}
}

// Error implements the error interface.
func (i *IndexDeletionError) Error() string {
	return fmt.Sprintf("error deleting index %q: %v", i.Index, i.Err)
}

// Unwrap returns the underlying engine error.
func (i *IndexDeletionError) Unwrap() error {
	return i.Err
}

// ShipError is returned when a single document could not be written.
type ShipError struct {
	ID     string
	Status int
	Type   string
	Err    error
}

// NewShipError returns an error for document id. Status and errType carry the
// engine's response code and error type when they are known.
func NewShipError(id string, status int, errType string, err error) *ShipError {
	return &ShipError{id, status, errType, err}
}

// Error implements the error interface.
func (s *ShipError) Error() string {
	if s.Status == 0 {
		return fmt.Sprintf("error shipping document %q: %v", s.ID, s.Err)
	}
	return fmt.Sprintf("error shipping document %q (status=%d, type=%s): %v", s.ID, s.Status, s.Type, s.Err)
}

// Unwrap returns the underlying error.
func (s *ShipError) Unwrap() error {
	return s.Err
}

// DrainTimeoutError is returned when enqueued work did not drain before the deadline.
type DrainTimeoutError struct {
	Pending int64
}

// NewDrainTimeoutError returns an error carrying the number of tasks still pending.
func NewDrainTimeoutError(pending int64) *DrainTimeoutError {
	return &DrainTimeoutError{pending}
}

// Error implements the error interface.
func (d *DrainTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for shipping tasks to drain, %d still pending", d.Pending)
}

// InvalidCastError is an error which is returned when an invalid cast of a particular type is attempted.
type InvalidCastError struct {
	From string
	To   string
}

// NewInvalidCastError returns an error two types that were involved in invalid cast operation.
func NewInvalidCastError(from, to string) *InvalidCastError {
	return &InvalidCastError{from, to}
}

// Error implements the error interface.
func (i *InvalidCastError) Error() string {
	return fmt.Sprintf("cannot cast %s to %s", i.From, i.To)
}

// NotFoundInContextError is an error which is returned when an expected value in the context is missing.
type NotFoundInContextError struct {
	Field string
}

// NewNotFoundInContextError returns an error for the given field when it is missing from the context.
func NewNotFoundInContextError(field string) *NotFoundInContextError {
	return &NotFoundInContextError{field}
}

// Error implements the error interface.
func (n *NotFoundInContextError) Error() string {
	return fmt.Sprintf("\"%s\" not found in request context", n.Field)
}

// IsEngineUnavailable reports whether err is, or wraps, an EngineUnavailableError.
func IsEngineUnavailable(err error) bool {
	var e *EngineUnavailableError
	return errors.As(err, &e)
}

// IsAliasSwitch reports whether err is, or wraps, an AliasSwitchError.
func IsAliasSwitch(err error) bool {
	var e *AliasSwitchError
	return errors.As(err, &e)
}
