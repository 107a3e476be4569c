package services

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the HTTP layer can map it to a status
// code without inspecting individual error codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindStateTransition
	KindForbidden
	KindConflict
)

// Error is a typed domain error returned by use cases. Code is a stable
// machine-readable identifier; Message is human-readable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the Kind of err, or KindUnknown for non-domain errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// CodeOf returns the machine-readable code of err, or "" for non-domain errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func errItemNotFound(id string) *Error {
	return &Error{KindNotFound, "ITEM_NOT_FOUND", fmt.Sprintf("item %s not found", id)}
}

func errItemDeleted(id string) *Error {
	return &Error{KindValidation, "ITEM_DELETED", fmt.Sprintf("item %s has been deleted", id)}
}

func errInsufficientValue(have, need int64) *Error {
	return &Error{KindValidation, "INSUFFICIENT_VALUE",
		fmt.Sprintf("insufficient remaining value: have %d, need %d", have, need)}
}

func errDuplicateIdentifier(identifier string) *Error {
	return &Error{KindValidation, "DUPLICATE_IDENTIFIER",
		fmt.Sprintf("identifier %q already in use", identifier)}
}

func errValueMismatch(original, damaged, remaining int64) *Error {
	return &Error{KindValidation, "VALUE_MISMATCH",
		fmt.Sprintf("damaged (%d) plus remaining (%d) value exceeds original value (%d)", damaged, remaining, original)}
}

func errEmptyItemList() *Error {
	return &Error{KindValidation, "EMPTY_ITEM_LIST", "at least one item is required"}
}

func errEmptyDelivery() *Error {
	return &Error{KindValidation, "EMPTY_DELIVERY", "a delivery requires at least one item"}
}

func errNoComponents(id string) *Error {
	return &Error{KindValidation, "NO_COMPONENTS",
		fmt.Sprintf("item %s has no components to disassemble", id)}
}

func errTransformationNotFound(id string) *Error {
	return &Error{KindNotFound, "TRANSFORMATION_NOT_FOUND", fmt.Sprintf("transformation %s not found", id)}
}

func errReservationNotFound(id string) *Error {
	return &Error{KindNotFound, "RESERVATION_NOT_FOUND", fmt.Sprintf("reservation %s not found", id)}
}

func errInvalidStateTransition(from, op string) *Error {
	return &Error{KindStateTransition, "INVALID_STATE_TRANSITION",
		fmt.Sprintf("cannot %s a reservation in state %q", op, from)}
}

func errDuplicateMember(userID string) *Error {
	return &Error{KindConflict, "DUPLICATE_MEMBER",
		fmt.Sprintf("user %s is already a member", userID)}
}

func errForbidden(op string) *Error {
	return &Error{KindForbidden, "FORBIDDEN", fmt.Sprintf("role does not allow %s", op)}
}

func errValidation(message string, args ...any) *Error {
	return &Error{KindValidation, "VALIDATION_ERROR", fmt.Sprintf(message, args...)}
}
