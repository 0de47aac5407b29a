package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// Store level sentinel errors. Services translate them into API errors.
var (
	ErrDuplicateExternalID = errors.New("repository: external id already suggested")
	ErrDuplicateVote       = errors.New("repository: user already contributed")
	ErrAlreadyApproved     = errors.New("repository: suggestion already approved")
	ErrNotPending          = errors.New("repository: suggestion is not pending")
	ErrDuplicateEmail      = errors.New("repository: email already registered")
)

const (
	pqUniqueViolation  = "23505"
	pqInvalidText      = "22P02"
	pqQueryCanceled    = "57014"
	pqAdminShutdown    = "57P01"
	pqCannotConnectNow = "57P03"
	pqTooManyConns     = "53300"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsNotFound reports whether err means the addressed row does not exist. A
// malformed UUID can never match a row, so Postgres' invalid_text_representation
// counts as a miss.
func IsNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidText
}

// IsTransient reports whether err is a timeout or connectivity failure that is
// safe to surface as a retryable storage error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return true
		}
		switch pqErr.Code {
		case pqQueryCanceled, pqAdminShutdown, pqCannotConnectNow, pqTooManyConns:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func rollback(tx interface{ Rollback() error }) {
	_ = tx.Rollback()
}
