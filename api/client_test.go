// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api_test

import (
	"context"

	"github.com/juju/jujuapi/rpc"
)

// fakeCall records one request issued through a fakeCaller.
type fakeCall struct {
	req    rpc.Request
	params map[string]interface{}
}

// fakeCaller implements api.Caller, recording requests and replaying
// canned response bodies or errors in order.
type fakeCaller struct {
	calls     []fakeCall
	responses []map[string]interface{}
	errors    []error
	closed    bool
	dead      chan struct{}
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{dead: make(chan struct{})}
}

// respond queues a canned response body.
func (f *fakeCaller) respond(body map[string]interface{}) {
	f.responses = append(f.responses, body)
	f.errors = append(f.errors, nil)
}

// fail queues a canned error.
func (f *fakeCaller) fail(err error) {
	f.responses = append(f.responses, nil)
	f.errors = append(f.errors, err)
}

func (f *fakeCaller) Call(ctx context.Context, req rpc.Request, params map[string]interface{}) (map[string]interface{}, error) {
	f.calls = append(f.calls, fakeCall{req: req, params: params})
	if len(f.responses) == 0 {
		return map[string]interface{}{}, nil
	}
	body, err := f.responses[0], f.errors[0]
	f.responses, f.errors = f.responses[1:], f.errors[1:]
	return body, err
}

func (f *fakeCaller) Close() error {
	f.closed = true
	return nil
}

func (f *fakeCaller) Dead() <-chan struct{} {
	return f.dead
}

// lastCall returns the most recent recorded call.
func (f *fakeCaller) lastCall() fakeCall {
	return f.calls[len(f.calls)-1]
}
