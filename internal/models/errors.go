package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrStoryNotFound  = fmt.Errorf("story %w", ErrNotFound)
	ErrDraftNotFound  = fmt.Errorf("draft %w", ErrNotFound)
	ErrSessionExpired = fmt.Errorf("play session %w", ErrNotFound)

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	ErrInvalidInput = errors.New("invalid input data")
)

// ValidationCode identifies why a document or builder operation was rejected.
type ValidationCode string

const (
	CodeAlreadyHasChildren ValidationCode = "already_has_children"
	CodeAlreadyEnding      ValidationCode = "already_ending"
	CodeNotEmpty           ValidationCode = "not_empty"
	CodeNotEnding          ValidationCode = "not_ending"
	CodeMissingLabel       ValidationCode = "missing_label"
	CodeMissingTitle       ValidationCode = "missing_title"
	CodeMissingStartText   ValidationCode = "missing_start_text"
	CodeMissingStartNode   ValidationCode = "missing_start_node"
	CodeDanglingChoice     ValidationCode = "dangling_choice"
	CodeEndingHasChoices   ValidationCode = "ending_has_choices"
	CodeNodeNotFound       ValidationCode = "node_not_found"
	CodeProtectedNode      ValidationCode = "protected_node"
	CodeTooManyChoices     ValidationCode = "too_many_choices"
	CodeMergePoint         ValidationCode = "merge_point"
	CodeCycle              ValidationCode = "cycle"
	CodeUnreachableNode    ValidationCode = "unreachable_node"
)

// ValidationError is a user-fixable rejection carrying the offending node or field.
type ValidationError struct {
	Code    ValidationCode
	NodeID  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.NodeID != "" {
		return fmt.Sprintf("%s (node %s)", msg, e.NodeID)
	}
	return msg
}

// Is matches any ValidationError with the same code, so sentinels below can be
// used with errors.Is regardless of node.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyHasChildren = &ValidationError{Code: CodeAlreadyHasChildren, Message: "node already has choices"}
	ErrAlreadyEnding      = &ValidationError{Code: CodeAlreadyEnding, Message: "node is marked as ending"}
	ErrNotEmpty           = &ValidationError{Code: CodeNotEmpty, Message: "node has choices; remove them first"}
	ErrNotEnding          = &ValidationError{Code: CodeNotEnding, Message: "node is not an ending"}
	ErrMissingLabel       = &ValidationError{Code: CodeMissingLabel, Message: "choice label is required", Field: "label"}
	ErrMissingTitle       = &ValidationError{Code: CodeMissingTitle, Message: "title is required", Field: "title"}
	ErrMissingStartText   = &ValidationError{Code: CodeMissingStartText, Message: "start text is required", Field: "text"}
	ErrMissingStartNode   = &ValidationError{Code: CodeMissingStartNode, Message: "start node is missing"}
	ErrDanglingChoice     = &ValidationError{Code: CodeDanglingChoice, Message: "choice points to a missing node"}
	ErrEndingHasChoices   = &ValidationError{Code: CodeEndingHasChoices, Message: "ending node cannot have choices"}
	ErrNodeNotFound       = &ValidationError{Code: CodeNodeNotFound, Message: "node not found"}
	ErrProtectedNode      = &ValidationError{Code: CodeProtectedNode, Message: "node cannot be deleted"}
	ErrTooManyChoices     = &ValidationError{Code: CodeTooManyChoices, Message: "node has more than two choices"}
	ErrMergePoint         = &ValidationError{Code: CodeMergePoint, Message: "node is the target of more than one choice"}
	ErrCycle              = &ValidationError{Code: CodeCycle, Message: "choices form a cycle"}
	ErrUnreachableNode    = &ValidationError{Code: CodeUnreachableNode, Message: "node is not reachable from start"}
)

// NewValidationError copies a sentinel and attaches the offending node.
func NewValidationError(sentinel *ValidationError, nodeID string) *ValidationError {
	e := *sentinel
	e.NodeID = nodeID
	return &e
}
