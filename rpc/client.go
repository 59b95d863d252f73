// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package rpc implements the client side of the API's RPC protocol:
// a single ordered message stream multiplexing any number of
// concurrent outstanding requests, each correlated to its caller by
// a monotonically increasing request id.
package rpc

import (
	"context"
	"io"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/jujuapi/rpc/jsoncodec"
)

var logger = loggo.GetLogger("jujuapi.rpc")

// ErrShutdown is returned when a request is made on a connection
// that is shutting down.
const ErrShutdown = errors.ConstError("connection is shut down")

// ErrConnectionLost is the type of the error given to every pending
// call when the transport drops while requests are outstanding. The
// underlying transport error is carried in the chain.
const ErrConnectionLost = errors.ConstError("connection lost")

// IsShutdownErr returns true if the error is ErrShutdown.
func IsShutdownErr(err error) bool {
	return errors.Is(err, ErrShutdown)
}

// IsConnectionLost returns true if the error was caused by the
// transport dropping with requests still outstanding.
func IsConnectionLost(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// Transport is the message channel a Conn runs over. It must be an
// already-upgraded, ordered, reliable, message-framed connection;
// this package implements no handshake, framing or TLS.
type Transport interface {
	// Send writes a single message to the remote side.
	Send(data []byte) error

	// Receive blocks until the next message arrives and returns it.
	// It returns io.EOF on clean close and some other error on an
	// abrupt disconnection; either terminates the connection.
	Receive() ([]byte, error)

	// Close closes the transport. It may be called concurrently
	// with Receive and must cause Receive to unblock.
	Close() error
}

// Request identifies an action to invoke on the API server.
type Request struct {
	// Type holds the facade to act on.
	Type string

	// Version holds the facade version of the request. Zero is sent
	// as an absent version, which the server reads as version 0.
	Version int

	// Id holds the id of the remote object to act on, if any.
	Id string

	// Action holds the action to invoke on the facade.
	Action string
}

// Call represents an active RPC.
type Call struct {
	Request
	Params   map[string]interface{}
	Response map[string]interface{}
	Error    error
	Done     chan *Call
}

func (call *Call) done() {
	select {
	case call.Done <- call:
	default:
		// The Done channel is allocated with enough buffer space
		// for exactly one completion; a second would indicate a
		// correlation bug.
		logger.Errorf("discarding Call reply due to insufficient Done chan capacity")
	}
}

// Conn represents a client RPC endpoint. There may be multiple
// outstanding Calls associated with a single Conn, and a Conn may be
// used by multiple goroutines simultaneously.
type Conn struct {
	// transport holds the underlying message channel.
	transport Transport

	// sending guards the write side of the transport - it ensures
	// that transport.Send is not called concurrently.
	sending sync.Mutex

	// mutex guards the following values.
	mutex sync.Mutex

	// reqId holds the latest request id. Ids start at 1 and are
	// never reused for the life of the connection.
	reqId uint64

	// clientPending holds all pending requests, keyed by request id.
	// It is the only shared mutable state in the connection.
	clientPending map[uint64]*Call

	// closing is set when the connection is shutting down via
	// Close. When this is set, no more requests will be sent.
	closing bool

	// shutdown is set when the input loop terminates. When this
	// is set, no more requests will be sent to the server.
	shutdown bool

	// dead is closed when the input loop terminates.
	dead chan struct{}

	// inputLoopError holds the error that caused the input loop to
	// terminate prematurely. It is set before dead is closed.
	inputLoopError error
}

// NewConn creates a new connection that uses the given transport,
// but it does not start it. Conn.Start must be called before any
// requests are sent.
func NewConn(transport Transport) *Conn {
	return &Conn{
		transport:     transport,
		clientPending: make(map[uint64]*Call),
	}
}

// Start starts the RPC connection running. It must be called once
// for any connection; it has no effect if called again.
func (conn *Conn) Start() {
	conn.mutex.Lock()
	defer conn.mutex.Unlock()
	if conn.dead == nil {
		conn.dead = make(chan struct{})
		go conn.input()
	}
}

// Dead returns a channel that is closed when the connection has
// been closed or the underlying transport has received an error.
func (conn *Conn) Dead() <-chan struct{} {
	return conn.dead
}

// Close closes the connection and its underlying transport; it
// returns when all outstanding requests have been terminated.
// Closing an already-closed connection is a no-op.
func (conn *Conn) Close() error {
	conn.mutex.Lock()
	if conn.closing {
		conn.mutex.Unlock()
		<-conn.dead
		return nil
	}
	conn.closing = true
	conn.mutex.Unlock()

	// Closing the transport causes the input loop to terminate,
	// failing any requests still in flight.
	if err := conn.transport.Close(); err != nil {
		logger.Infof("error closing transport: %v", err)
	}
	<-conn.dead
	return conn.inputLoopError
}

// Call invokes the given request with the given parameters and
// returns the response body. If the action fails remotely, the
// returned error has a *params.Error in its chain carrying the
// server's message and code. The params map may be nil if the
// request has no parameters.
//
// Call blocks until the server answers; for long-poll requests that
// can be indefinitely. Cancelling the context abandons the call
// locally without disturbing the connection - the only way to
// terminate the request server-side is to Close the connection,
// which fails every outstanding call.
func (conn *Conn) Call(ctx context.Context, req Request, p map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	call := &Call{
		Request: req,
		Params:  p,
		Done:    make(chan *Call, 1),
	}
	conn.send(call)

	select {
	case <-ctx.Done():
		// The call stays registered; its eventual completion is
		// absorbed by the Done channel's buffer.
		return nil, errors.Trace(context.Cause(ctx))
	case result := <-call.Done:
		if result.Error != nil {
			return nil, errors.Trace(result.Error)
		}
		return result.Response, nil
	}
}

// send registers the call under a fresh request id and writes it to
// the transport. Errors are delivered through the call itself.
func (conn *Conn) send(call *Call) {
	conn.sending.Lock()
	defer conn.sending.Unlock()

	// Register this call.
	conn.mutex.Lock()
	if conn.dead == nil {
		conn.mutex.Unlock()
		call.Error = errors.New("rpc: call made when connection not started")
		call.done()
		return
	}
	if conn.closing || conn.shutdown {
		conn.mutex.Unlock()
		call.Error = errors.WithType(
			errors.New("connection is shut down before send"), ErrShutdown)
		call.done()
		return
	}
	conn.reqId++
	reqId := conn.reqId
	conn.clientPending[reqId] = call
	conn.mutex.Unlock()

	// Encode and send the request.
	data, err := jsoncodec.EncodeRequest(
		reqId, call.Type, call.Action, call.Id, call.Version, call.Params)
	if err == nil {
		err = conn.transport.Send(data)
	}
	if err != nil {
		conn.mutex.Lock()
		call = conn.clientPending[reqId]
		delete(conn.clientPending, reqId)
		conn.mutex.Unlock()
		if call != nil {
			call.Error = err
			call.done()
		}
	}
}

// input reads messages from the transport and dispatches them until
// the transport fails or is closed, then terminates every request
// still pending.
func (conn *Conn) input() {
	err := conn.loop()
	conn.sending.Lock()
	defer conn.sending.Unlock()
	conn.mutex.Lock()
	defer conn.mutex.Unlock()

	if conn.closing || err == io.EOF {
		err = ErrShutdown
	} else {
		// Make the error available for Conn.Close to see, and mark
		// it so callers can tell an involuntary disconnection from
		// a requested shutdown.
		conn.inputLoopError = err
		err = errors.WithType(err, ErrConnectionLost)
	}
	// Terminate all pending requests.
	for _, call := range conn.clientPending {
		call.Error = err
		call.done()
	}
	conn.clientPending = nil
	conn.shutdown = true
	close(conn.dead)
}

// loop implements the receiving part of Conn.input.
func (conn *Conn) loop() error {
	for {
		data, err := conn.transport.Receive()
		if err != nil {
			return err
		}
		if err := conn.handleResponse(data); err != nil {
			return err
		}
	}
}

// handleResponse resolves the pending call matching an inbound
// message. A message for an unknown request id is a protocol
// violation - the server must never answer twice or answer an id we
// never sent - and is fatal to the connection rather than ignored.
func (conn *Conn) handleResponse(data []byte) error {
	msg, err := jsoncodec.DecodeMessage(data)
	if err != nil {
		return errors.Annotate(err, "error handling response")
	}
	conn.mutex.Lock()
	call := conn.clientPending[msg.RequestId]
	delete(conn.clientPending, msg.RequestId)
	conn.mutex.Unlock()
	if call == nil {
		return errors.Errorf("response for unknown request id %d", msg.RequestId)
	}
	if msg.Error != nil {
		call.Error = msg.Error
	} else {
		call.Response = msg.Body
	}
	call.done()
	return nil
}
