package core

// error_messages.go maps technical errors to messages that can be shown to
// the person running an import. Each message carries a code that support
// staff can look up here.
//
// # Database Errors (DB001-DB006)
//
//	DB001 - Duplicate key                 Patterns: "duplicate key"
//	DB002 - Unique constraint             Patterns: "unique constraint", "violates unique"
//	DB003 - Connection refused            Patterns: "connection refused"
//	DB004 - Connection reset              Patterns: "connection reset"
//	DB005 - Timeout                       Patterns: "timeout"
//	DB006 - Deadlock                      Patterns: "deadlock"
//
// # File Errors (FILE001-FILE006)
//
//	FILE001 - File too large              Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV                 Patterns: "invalid csv"
//	FILE003 - Invalid JSON                Patterns: "invalid json", "json data must be", "json array must"
//	FILE004 - Invalid spreadsheet         Patterns: "invalid xlsx"
//	FILE005 - Unsupported format          Patterns: "unsupported file extension", "unsupported file content"
//	FILE006 - No file                     Patterns: "no file provided"
//
// # Import Errors (IMP001-IMP006)
//
//	IMP001 - Nothing to import            Patterns: "empty file", "records must not be empty"
//	IMP002 - System busy                  Patterns: "too many concurrent imports"
//	IMP003 - Request cancelled            Patterns: "context canceled"
//	IMP004 - Request timeout              Patterns: "context deadline exceeded"
//	IMP005 - Import failed                Patterns: "import job"
//	IMP006 - Invalid page                 Patterns: "invalid page"
//
// # Request Errors (REQ001)
//
//	REQ001 - Invalid request              Patterns: "invalid request"
//
// # Default Error (ERR000)
//
// Returned when nothing matches. Check the server logs for the request id.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones. A failed import
// wraps its cause, which lets a database pattern win over IMP005.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing description of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraint errors
	{"duplicate key", UserMessage{
		Message: "A region with this code already exists",
		Action:  "Remove the duplicate code and import again",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate codes in your file",
		Code:    "DB002",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Check for duplicate codes in your file",
		Code:    "DB002",
	}},

	// Database connectivity errors
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB006",
	}},

	// Cancellation is checked before the generic timeout pattern.
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "IMP003",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "IMP004",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB005",
	}},

	// File errors
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a header row",
		Code:    "FILE002",
	}},
	{"invalid json", UserMessage{
		Message: "File is not valid JSON",
		Action:  "Check the file for syntax errors",
		Code:    "FILE003",
	}},
	{"json data must be", UserMessage{
		Message: "JSON must be an object or an array of objects",
		Action:  "Wrap each region in an object with code and name fields",
		Code:    "FILE003",
	}},
	{"json array must", UserMessage{
		Message: "JSON must be an object or an array of objects",
		Action:  "Wrap each region in an object with code and name fields",
		Code:    "FILE003",
	}},
	{"invalid xlsx", UserMessage{
		Message: "File is not a valid Excel workbook",
		Action:  "Save the file as .xlsx and try again",
		Code:    "FILE004",
	}},
	{"unsupported file extension", UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a .csv, .json, or .xlsx file",
		Code:    "FILE005",
	}},
	{"unsupported file content", UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a .csv, .json, or .xlsx file",
		Code:    "FILE005",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a file to upload",
		Code:    "FILE006",
	}},

	// Import errors
	{"empty file", UserMessage{
		Message: "There are no valid records to import",
		Action:  "Check the rejected rows and fix the file",
		Code:    "IMP001",
	}},
	{"records must not be empty", UserMessage{
		Message: "There are no records to import",
		Action:  "Send at least one record",
		Code:    "IMP001",
	}},
	{"too many concurrent imports", UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP002",
	}},
	{"import job", UserMessage{
		Message: "The import failed and was recorded in the import history",
		Action:  "Review the job in the import history and try again",
		Code:    "IMP005",
	}},
	{"invalid page", UserMessage{
		Message: "Invalid page parameters",
		Action:  "Use page >= 1 and pageSize between 1 and 100",
		Code:    "IMP006",
	}},

	// Request errors
	{"invalid request", UserMessage{
		Message: "The request is not valid",
		Action:  "Check the request fields and try again",
		Code:    "REQ001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the first UserMessage whose pattern appears in err's text,
// or the ERR000 fallback. A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
