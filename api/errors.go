// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"github.com/juju/errors"
)

// ErrInvalidEndpoint is raised locally when an endpoint address
// fails validation, before anything touches the network.
const ErrInvalidEndpoint = errors.ConstError("invalid API endpoint")

// ErrMalformedResponse is raised locally when a response that should
// carry required fields does not. It indicates a programming or
// compatibility error and is never worth retrying.
const ErrMalformedResponse = errors.ConstError("malformed response")

// ErrAllWatcherStopped means the server tore down the all-watcher,
// typically across an upgrade. The watch must be re-established with
// a new WatchAll call.
const ErrAllWatcherStopped = errors.ConstError("all-watcher was stopped")

// IsInvalidEndpoint returns true if the error came from endpoint
// address validation.
func IsInvalidEndpoint(err error) bool {
	return errors.Is(err, ErrInvalidEndpoint)
}

// IsMalformedResponse returns true if the error came from a response
// missing required structure.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsAllWatcherStopped returns true if the error means the watch must
// be re-established.
func IsAllWatcherStopped(err error) bool {
	return errors.Is(err, ErrAllWatcherStopped)
}

func invalidEndpointf(addr string) error {
	return errors.WithType(errors.Errorf("invalid API endpoint %q", addr), ErrInvalidEndpoint)
}

func malformedResponsef(format string, args ...interface{}) error {
	return errors.WithType(errors.Errorf(format, args...), ErrMalformedResponse)
}
