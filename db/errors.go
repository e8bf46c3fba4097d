package db

import (
	"errors"

	"gorm.io/gorm"
)

// Error kinds. Controllers switch on these with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// Error carries a caller-facing message and one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }
func notFound(msg string) error   { return &Error{Kind: ErrNotFound, Msg: msg} }
func forbidden(msg string) error  { return &Error{Kind: ErrForbidden, Msg: msg} }
func conflict(msg string) error   { return &Error{Kind: ErrConflict, Msg: msg} }

var ErrAlreadyBorrowed error = &Error{Kind: ErrConflict, Msg: "asset is already borrowed"}

var ErrLoanNotOpen error = &Error{Kind: ErrConflict, Msg: "loan is not currently borrowed"}

// notFoundOr maps gorm's missing-row error to a NotFound with msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
