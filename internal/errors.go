package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

// FieldError carries one field-level validation message for a section
// submit. These surface inline next to the offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrSectionInvalid is returned when a step submit fails validation; the
// wizard must not advance and the store is left untouched.
type ErrSectionInvalid struct {
	Section     string
	FieldErrors []FieldError
}

func (e ErrSectionInvalid) Error() string {
	messages := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		messages[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}

	return "section " + e.Section + " is invalid: " + strings.Join(messages, "; ")
}

func (e ErrSectionInvalid) Is(target error) bool {
	_, ok := target.(ErrSectionInvalid)
	return ok
}

// ErrSubmissionIncomplete is returned by the final submit when required
// fields are still missing across sections.
type ErrSubmissionIncomplete struct {
	Missing []struct {
		Section string
		Field   string
	}
}

func (e ErrSubmissionIncomplete) Error() string {
	missing := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		missing[i] = m.Section + "." + m.Field
	}

	return "submission is not complete, missing required fields: " + strings.Join(missing, "; ")
}

func (e ErrSubmissionIncomplete) Is(target error) bool {
	_, ok := target.(ErrSubmissionIncomplete)
	return ok
}

// ErrUnknownField is returned when a write names a field the section does
// not declare. Undeclared writes are rejected rather than silently creating
// stray keys.
type ErrUnknownField struct {
	Section string
	Field   string
}

func (e ErrUnknownField) Error() string {
	return "field " + e.Field + " is not declared by section " + e.Section
}

func (e ErrUnknownField) Is(target error) bool {
	_, ok := target.(ErrUnknownField)
	return ok
}

var (
	// General Errors
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInternalServerError = errors.New("internal server error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequestBody  = errors.New("invalid request body")
	ErrDatabaseError       = errors.New("database error")

	// Wizard Errors
	ErrProgramNotFound     = errors.New("program not found")
	ErrSessionNotFound     = errors.New("wizard session not found")
	ErrSectionNotFound     = errors.New("section not found")
	ErrFieldTypeMismatch   = errors.New("field value does not match the declared field kind")
	ErrListIndexOutOfRange = errors.New("list index out of range")
	ErrNotAListField       = errors.New("field is not a list field")
	ErrInvalidListIndex    = errors.New("invalid list index parameter")

	// Case Errors
	ErrCaseNotFound        = errors.New("case not found")
	ErrCaseProgramMismatch = errors.New("case does not belong to the expected program")

	// Partner Errors
	ErrPartnerNotFound     = errors.New("partner organization not found")
	ErrPartnerNameConflict = errors.New("partner organization name already taken")

	// User Errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameConflict = errors.New("username already taken")
	ErrInvalidRole      = errors.New("invalid role")

	// List Parameter Errors
	ErrInvalidLimit  = errors.New("invalid limit parameter")
	ErrInvalidOffset = errors.New("invalid offset parameter")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return problem.NewForbiddenProblem("permission denied")
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")
	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")
	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")
	case errors.Is(err, ErrDatabaseError):
		return problem.NewBadRequestProblem("database error")

	// Wizard Errors
	case errors.Is(err, ErrProgramNotFound):
		return problem.NewNotFoundProblem("program not found")
	case errors.Is(err, ErrSessionNotFound):
		return problem.NewNotFoundProblem("wizard session not found")
	case errors.Is(err, ErrSectionNotFound):
		return problem.NewNotFoundProblem("section not found")
	case errors.Is(err, ErrFieldTypeMismatch):
		return problem.NewValidateProblem("field value does not match the declared field kind")
	case errors.Is(err, ErrListIndexOutOfRange):
		return problem.NewValidateProblem("list index out of range")
	case errors.Is(err, ErrNotAListField):
		return problem.NewValidateProblem("field is not a list field")
	case errors.Is(err, ErrInvalidListIndex):
		return problem.NewBadRequestProblem("invalid list index parameter")
	case errors.Is(err, ErrSectionInvalid{}):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrUnknownField{}):
		return problem.NewValidateProblem(err.Error())

	// Case Errors
	case errors.Is(err, ErrCaseNotFound):
		return problem.NewNotFoundProblem("case not found")
	case errors.Is(err, ErrCaseProgramMismatch):
		return problem.NewValidateProblem("case does not belong to the expected program")
	case errors.Is(err, ErrSubmissionIncomplete{}):
		return problem.NewValidateProblem(err.Error())

	// Partner Errors
	case errors.Is(err, ErrPartnerNotFound):
		return problem.NewNotFoundProblem("partner organization not found")
	case errors.Is(err, ErrPartnerNameConflict):
		return problem.NewValidateProblem("partner organization name already taken")

	// User Errors
	case errors.Is(err, ErrUserNotFound):
		return problem.NewNotFoundProblem("user not found")
	case errors.Is(err, ErrUsernameConflict):
		return problem.NewValidateProblem("username already taken")
	case errors.Is(err, ErrInvalidRole):
		return problem.NewValidateProblem("invalid role value")

	// List Parameter Errors
	case errors.Is(err, ErrInvalidLimit):
		return problem.NewBadRequestProblem("invalid limit parameter")
	case errors.Is(err, ErrInvalidOffset):
		return problem.NewBadRequestProblem("invalid offset parameter")
	}
	return problem.Problem{}
}
