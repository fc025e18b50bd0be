package core

// error_messages.go maps technical errors to coded messages for the HTTP and CLI layers.
//
// Codes by category:
//
//	CFG001 - Mapping document could not be parsed
//	FILE001 - Output directory missing or unreadable
//	STORE001 - Record or attribute type unknown to the artifact store
//	STORE002 - Record could not be created
//	STORE003 - Batch could not be posted
//	STORE004 - Artifact store unreachable
//	ING001 - Ingestion pass cancelled or timed out
//	ING002 - Too many passes pending
//	ERR000 - Anything else

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is the operator-facing form of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{
		target: ErrConfigParse,
		msg: UserMessage{
			Message: "The mapping document could not be parsed",
			Action:  "Check the INGEST_MAPPING_FILE path and that the document is well-formed",
			Code:    "CFG001",
		},
	},
	{
		target: ErrFileAccess,
		msg: UserMessage{
			Message: "The tool output directory could not be read",
			Action:  "Verify the directory exists and is readable",
			Code:    "FILE001",
		},
	},
	{
		target: ErrNotFound,
		msg: UserMessage{
			Message: "A type referenced by the mapping is unknown to the artifact store",
			Action:  "Register the type or correct the mapping document",
			Code:    "STORE001",
		},
	},
	{
		target: ErrCreate,
		msg: UserMessage{
			Message: "A record could not be created",
			Action:  "Check the store logs for the failing record type",
			Code:    "STORE002",
		},
	},
	{
		target: ErrPost,
		msg: UserMessage{
			Message: "The record batch could not be posted",
			Action:  "Re-run the ingestion pass once the store is healthy",
			Code:    "STORE003",
		},
	},
	{
		target: ErrCancelled,
		msg: UserMessage{
			Message: "The ingestion pass was cancelled",
			Action:  "Re-run the pass; records already posted are kept",
			Code:    "ING001",
		},
	},
	{
		target: ErrTooManyPasses,
		msg: UserMessage{
			Message: "Too many ingestion passes are already pending",
			Action:  "Retry once the running pass completes",
			Code:    "ING002",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "The ingestion pass timed out",
			Action:  "Raise INGEST_TIMEOUT or ingest a smaller output directory",
			Code:    "ING001",
		},
	},
}

// Driver errors surface as plain strings, so they are matched by text.
var storePatterns = []string{"connection refused", "connection reset", "no such host", "database is closed"}

var storeUnreachable = UserMessage{
	Message: "The artifact store is unreachable",
	Action:  "Check DATABASE_URL or BADGER_DIR and try again",
	Code:    "STORE004",
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the server logs for details",
	Code:    "ERR000",
}

// MapError converts an error to a coded message. Sentinel errors are matched with
// errors.Is first, then driver messages by substring, then the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range storePatterns {
		if strings.Contains(errStr, p) {
			return storeUnreachable
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its mapped message.
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

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
