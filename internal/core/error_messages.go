// Package core provides the valuation and ingestion logic for a game collection.
//
// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Import rejections and API error bodies carry these codes so a
// user can quote them when reporting a problem.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced console, region or game does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: Release date has no recognizable year
//	VAL002 - Invalid number: Price or override is not a number
//	VAL003 - Required field: Required field is empty
//	VAL004 - Invalid condition: Condition rating outside 1-5 or "missing"
//	VAL005 - Invalid new state: New copies must be mint in every component
//
// # Duplicate Errors (DUP001-DUP099)
//
//	DUP001 - Title exists: Same title already catalogued for this console
//	DUP002 - URL exists: PriceCharting URL already used by another game
//
// # Lookup Errors
//
//	NF001  - Not found: The requested record does not exist
//	REF001 - Still referenced: Record is in use and cannot be deleted
//
// # Exchange Rate Errors (RATE001-RATE099)
//
//	RATE001 - Invalid rate: Exchange rates must be positive
//	RATE002 - Rate limited: Too many requests
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Import too large: Import exceeds the size limit
//	IMP002 - Malformed import: Input is not tab-separated text
//	IMP003 - System busy: Too many imports in progress
//	IMP004 - Request cancelled: Request was cancelled
//	IMP005 - Request timeout: Request timed out
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Matching
//
// Typed errors are matched first with errors.Is / errors.As. Anything else
// falls through to substring patterns, matched case-insensitively; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgNotFound = UserMessage{
		Message: "The requested record does not exist",
		Action:  "Check the id and try again",
		Code:    "NF001",
	}
	msgReferential = UserMessage{
		Message: "This record is still in use",
		Action:  "Remove the collection items or games that reference it first",
		Code:    "REF001",
	}
	msgInvalidRate = UserMessage{
		Message: "Exchange rates must be positive",
		Action:  "Enter a rate greater than zero",
		Code:    "RATE001",
	}
	msgDuplicateTitle = UserMessage{
		Message: "A game with this title already exists for this console",
		Action:  "Edit the existing entry instead of adding a new one",
		Code:    "DUP001",
	}
	msgDuplicateURL = UserMessage{
		Message: "This PriceCharting URL is already used by another game",
		Action:  "Check that the URL points at the right game",
		Code:    "DUP002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database constraint errors
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check for duplicate rows in your import",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate rows in your import",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for duplicate rows in your import",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced console, region or game does not exist",
			Action:  "Create the console or region before importing into it",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database connection errors
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Import errors
	// =========================================================================
	{
		pattern: "import too large",
		msg: UserMessage{
			Message: "Import exceeds the size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "IMP001",
		},
	},
	{
		pattern: "malformed import",
		msg: UserMessage{
			Message: "Input is not tab-separated text",
			Action:  "Export the sheet as TSV with a header row",
			Code:    "IMP002",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller import or try again later",
			Code:    "IMP005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Validation errors
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Release date has no recognizable year",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or just the year",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal amount such as 19.99",
			Code:    "VAL002",
		},
	},
	{
		pattern: "must be a number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal amount such as 19.99",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in the title before saving",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be 1-5",
		msg: UserMessage{
			Message: "Condition must be 1-5 or \"missing\"",
			Action:  "Rate box, manual and disc from 1 (poor) to 5 (mint)",
			Code:    "VAL004",
		},
	},
	{
		pattern: "new copies must have",
		msg: UserMessage{
			Message: "New copies must be mint in every component",
			Action:  "Use mark-new, or clear the new flag before lowering a rating",
			Code:    "VAL005",
		},
	},

	// =========================================================================
	// Rate limiting
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Typed
// domain errors are recognized first; other errors are matched against
// errorPatterns. Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var dup *DuplicateError
	var rateErr *InvalidRateError
	switch {
	case errors.As(err, &dup):
		if dup.Result.Reason == ReasonURL {
			return msgDuplicateURL
		}
		return msgDuplicateTitle
	case errors.As(err, &rateErr):
		return msgInvalidRate
	case errors.Is(err, ErrReferential):
		return msgReferential
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
