// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"

	"github.com/juju/jujuapi/rpc"
)

// defaultPort is the port controllers listen on when the address does
// not name one.
const defaultPort = 17070

// Version selects the API generation to speak.
type Version int

const (
	Juju1 Version = 1
	Juju2 Version = 2
)

// DialOpts holds the options controlling how an Endpoint connection
// is established.
type DialOpts struct {
	// Timeout bounds a single dial attempt. Defaults to 20 seconds.
	Timeout time.Duration

	// RetryDelay is the pause between dial attempts. Defaults to one
	// second.
	RetryDelay time.Duration

	// Attempts is the number of dial attempts to make before giving
	// up. Defaults to a single attempt.
	Attempts int

	// Clock drives the retry delays. Defaults to clock.WallClock.
	Clock clock.Clock

	// DialWebsocket is overridable for testing. It defaults to
	// dialing with a gorilla websocket Dialer.
	DialWebsocket func(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error)
}

func (o DialOpts) withDefaults() DialOpts {
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	if o.DialWebsocket == nil {
		o.DialWebsocket = dialWebsocket
	}
	return o
}

// Endpoint describes a controller API endpoint to connect to.
type Endpoint struct {
	// Addr is the controller address, "host" or "host:port".
	Addr string

	// CACert is the PEM certificate to verify the server against.
	// When empty, server verification is disabled; this mirrors how
	// the CLI talks to controllers it has no certificate for yet.
	CACert string

	// ModelUUID scopes the connection to a model. Juju 2 controllers
	// serve each model's API on a model-scoped path.
	ModelUUID string

	// Version selects the dialect to speak.
	Version Version

	DialOpts DialOpts
}

// Connect dials the endpoint's websocket and returns a Client
// speaking the endpoint's API generation. The connection is retried
// per the endpoint's DialOpts.
func (ep Endpoint) Connect(ctx context.Context) (Client, error) {
	urlStr, err := ep.apiURL()
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts := ep.DialOpts.withDefaults()
	tlsConfig, err := tlsConfigFor(ep.CACert)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var transport rpc.Transport
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
			var dialErr error
			transport, dialErr = opts.DialWebsocket(dialCtx, urlStr, tlsConfig)
			return dialErr
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("dial attempt %d to %q failed: %v", attempt, urlStr, err)
		},
		Attempts: opts.Attempts,
		Delay:    opts.RetryDelay,
		Clock:    opts.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "cannot connect to API endpoint %q", urlStr)
	}

	conn := rpc.NewConn(transport)
	conn.Start()
	if ep.Version == Juju1 {
		return NewJuju1Client(conn), nil
	}
	return NewJuju2Client(conn), nil
}

// apiURL returns the websocket URL for the endpoint, validating the
// address. Juju 2 model connections use a model-scoped path.
func (ep Endpoint) apiURL() (string, error) {
	host, port, err := parseAddr(ep.Addr)
	if err != nil {
		return "", errors.Trace(err)
	}
	u := &url.URL{
		Scheme: "wss",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/",
	}
	if ep.Version != Juju1 && ep.ModelUUID != "" {
		u.Path = "/model/" + ep.ModelUUID + "/api"
	}
	return u.String(), nil
}

// parseAddr splits a "host" or "host:port" address, applying the
// default controller port.
func parseAddr(addr string) (string, int, error) {
	if strings.Contains(addr, "/") {
		return "", 0, invalidEndpointf(addr)
	}
	parts := strings.Split(addr, ":")
	switch len(parts) {
	case 1:
		return parts[0], defaultPort, nil
	case 2:
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return "", 0, invalidEndpointf(addr)
		}
		return parts[0], port, nil
	}
	return "", 0, invalidEndpointf(addr)
}

// tlsConfigFor returns the TLS configuration for a controller with
// the given CA certificate.
func tlsConfigFor(caCert string) (*tls.Config, error) {
	if caCert == "" {
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(caCert)) {
		return nil, errors.New("invalid CA certificate")
	}
	return &tls.Config{RootCAs: pool}, nil
}

// websocketTransport adapts a gorilla websocket connection to the
// rpc.Transport interface, one JSON message per websocket frame.
type websocketTransport struct {
	conn *websocket.Conn
}

func (t *websocketTransport) Send(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *websocketTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *websocketTransport) Close() error {
	return t.conn.Close()
}

func dialWebsocket(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error) {
	dialer := websocket.Dialer{TLSClientConfig: tlsConfig}
	conn, _, err := dialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &websocketTransport{conn: conn}, nil
}
