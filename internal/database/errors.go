package database

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories for database operations.
const (
	CategoryConnection = "connection"
	CategoryQuery      = "query"
	CategoryTimeout    = "timeout"
)

// DatabaseError is a categorized database error carrying the failed
// operation and a sanitized copy of the query.
//
//nolint:revive // DatabaseError is a clear, descriptive name that doesn't stutter in practice
type DatabaseError struct {
	Category    string
	Operation   string // open, ping, query, scan
	Message     string
	Query       string // sanitized, no parameter values
	OriginalErr error
}

func (e *DatabaseError) Error() string {
	msg := fmt.Sprintf("database %s error", e.Category)
	if e.Operation != "" {
		msg += " in " + e.Operation
	}
	msg += ": " + e.Message
	if e.OriginalErr != nil && e.Message != e.OriginalErr.Error() {
		msg += fmt.Sprintf(" (original: %v)", e.OriginalErr)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// NewConnectionError creates a connection error.
func NewConnectionError(message string, originalErr error) *DatabaseError {
	return &DatabaseError{Category: CategoryConnection, Operation: "connect", Message: message, OriginalErr: originalErr}
}

// NewQueryError creates a query error.
func NewQueryError(operation, message, query string, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    CategoryQuery,
		Operation:   operation,
		Message:     message,
		Query:       sanitizeQuery(query),
		OriginalErr: originalErr,
	}
}

// Classify turns a raw driver error into a DatabaseError by inspecting
// the message and, where the drivers expose them, their error codes.
func Classify(err error, driver, operation, query string) *DatabaseError {
	if err == nil {
		return nil
	}

	errMsg := strings.ToLower(err.Error())

	if isTimeoutError(errMsg) {
		return &DatabaseError{Category: CategoryTimeout, Operation: operation, Message: "operation timed out", OriginalErr: err}
	}
	if isConnectionError(errMsg) {
		return NewConnectionError("connection failed or lost", err)
	}
	if isSyntaxError(errMsg, driver) {
		return NewQueryError(operation, "SQL syntax error", query, err)
	}
	return NewQueryError(operation, err.Error(), query, err)
}

func isTimeoutError(errMsg string) bool {
	indicators := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"context deadline",
	}
	for _, indicator := range indicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}
	return false
}

func isConnectionError(errMsg string) bool {
	indicators := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"connection closed",
		"broken pipe",
		"bad connection",
		"unexpected eof",
		"server closed",
		"dial tcp",
		"connect: ",
	}
	for _, indicator := range indicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}
	return false
}

func isSyntaxError(errMsg string, driver string) bool {
	indicators := []string{
		"syntax error",
		"parse error",
		"near \"",
		"at or near",
	}
	for _, indicator := range indicators {
		if strings.Contains(errMsg, indicator) {
			return true
		}
	}

	switch driver {
	case DriverPostgres:
		// 42601: syntax_error
		return strings.Contains(errMsg, "42601")
	case DriverSQLServer:
		// 102: incorrect syntax near
		return strings.Contains(errMsg, "incorrect syntax")
	}
	return false
}

// sanitizeQuery bounds what gets logged; parameter values never appear
// because sources only run literal job-provided SQL.
func sanitizeQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "... (truncated)"
	}
	return query
}

// IsDatabaseError checks if the error is a DatabaseError.
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

// GetDatabaseError extracts the DatabaseError from an error chain.
func GetDatabaseError(err error) *DatabaseError {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}
	return nil
}
