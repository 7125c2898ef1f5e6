// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Handlers return errors; only main prints them and exits.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/ztachat-tui/internal/api"
	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/credstore"
	"github.com/jeranaias/ztachat-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrNotLoggedIn is returned by commands that need a stored session.
var ErrNotLoggedIn = errors.New("not logged in (run: ztachat login)")

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "friends"
	Action  string // e.g. "accept"
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string // optional
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var cfgErr config.ValidateErrors
	var connErr *session.ConnectionError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, session.ErrInvalidArguments),
		errors.Is(err, api.ErrBadRequest):
		return ExitUsageError

	case errors.As(err, &cfgErr):
		return ExitConfigError

	case errors.Is(err, ErrNotLoggedIn),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrNoToken),
		errors.Is(err, api.ErrTokenExpired),
		errors.Is(err, credstore.ErrDecrypt):
		return ExitAuthError

	case errors.Is(err, api.ErrNotFound), errors.Is(err, credstore.ErrNotFound):
		return ExitNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout

	case errors.As(err, &connErr), errors.Is(err, api.ErrRateLimited):
		return ExitNetworkError
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError prints err for humans, or as JSON in JSON mode.
func DisplayError(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print()
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// errorDetails is the JSON form of an error.
func errorDetails(err error) map[string]any {
	out := map[string]any{"type": "generic_error", "exit_code": GetExitCode(err)}

	var v *ValidationError
	var c *CommandError
	var a *api.APIError
	switch {
	case errors.As(err, &v):
		out["type"] = "validation_error"
		out["field"] = v.Field
	case errors.As(err, &a):
		out["type"] = "api_error"
		out["status"] = a.Status
	case errors.As(err, &c):
		out["type"] = "command_error"
		out["command"] = c.Command
	}
	return out
}

// marshalError is used by the JSON response writer.
func marshalError(err error) json.RawMessage {
	b, mErr := json.Marshal(errorDetails(err))
	if mErr != nil {
		return nil
	}
	return b
}
