// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package params

import (
	"github.com/juju/errors"
)

// Error is the wire representation of a server-reported request failure.
// Message is human-oriented; Code is a stable machine-oriented string and
// may be empty when the server does not define one for the failure mode.
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Message + " (" + e.Code + ")"
	}
	return e.Message
}

// ErrorCode returns the error code associated with the error.
func (e *Error) ErrorCode() string {
	return e.Code
}

// The well-known error codes reported by the API server. See
// apiserver/params/apierror.go in the server source.
const (
	CodeUnauthorized        = "unauthorized access"
	CodeUpgradeInProgress   = "upgrade in progress"
	CodeStoppedWatcher      = "watcher was stopped"
	CodeTryAgain            = "try again"
	CodeExcessiveContention = "excessive contention"
)

// Kind classifies a server-reported error by its code.
type Kind int

const (
	// KindGeneric covers any failure without a recognized code.
	KindGeneric Kind = iota

	// KindAuth means the server rejected the supplied credentials.
	KindAuth

	// KindRetriable means the server hinted the condition is
	// transient. This package never retries; callers key their
	// retry policy off the kind.
	KindRetriable

	// KindStoppedWatch is a retriable specialization meaning the
	// change feed was torn down server-side and must be
	// re-established with a new WatchAll call.
	KindStoppedWatch
)

// Retriable reports whether the kind describes a condition the
// server considers transient.
func (k Kind) Retriable() bool {
	return k == KindRetriable || k == KindStoppedWatch
}

var kindByCode = map[string]Kind{
	CodeUnauthorized:        KindAuth,
	CodeUpgradeInProgress:   KindRetriable,
	CodeStoppedWatcher:      KindStoppedWatch,
	CodeTryAgain:            KindRetriable,
	CodeExcessiveContention: KindRetriable,
}

// Classify maps a wire error code to its Kind. Unrecognized and
// empty codes map to KindGeneric; the mapping is total and never
// fails.
func Classify(code string) Kind {
	return kindByCode[code]
}

// Kind returns the classification of the error's code.
func (e *Error) Kind() Kind {
	return Classify(e.Code)
}

// ErrCode returns the error code of the first *Error found in err's
// chain, or the empty string if there is none.
func ErrCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCodeUnauthorized reports whether err is a server error carrying
// CodeUnauthorized.
func IsCodeUnauthorized(err error) bool {
	return ErrCode(err) == CodeUnauthorized
}

// IsCodeStoppedWatcher reports whether err means the all-watcher was
// stopped server-side. Juju 1 servers report this condition with an
// empty code and only the message to go by, so the message is
// consulted as well.
func IsCodeStoppedWatcher(err error) bool {
	if ErrCode(err) == CodeStoppedWatcher {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Message == CodeStoppedWatcher
}

// IsRetriable reports whether err is a server error whose code is
// classified as transient.
func IsRetriable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind().Retriable()
}
