// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api_test

import (
	"context"
	"crypto/tls"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/jujuapi/api"
	"github.com/juju/jujuapi/rpc"
)

type endpointSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&endpointSuite{})

// stubTransport is a transport whose Receive blocks until Close.
type stubTransport struct {
	closeOnce sync.Once
	closed    chan struct{}
}

func newStubTransport() *stubTransport {
	return &stubTransport{closed: make(chan struct{})}
}

func (t *stubTransport) Send([]byte) error {
	return nil
}

func (t *stubTransport) Receive() ([]byte, error) {
	<-t.closed
	return nil, io.EOF
}

func (t *stubTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

var addrTests = []struct {
	addr string
	url  string
	err  string
}{{
	addr: "1.2.3.4",
	url:  "wss://1.2.3.4:17070/",
}, {
	addr: "1.2.3.4:9999",
	url:  "wss://1.2.3.4:9999/",
}, {
	addr: "host.example.com",
	url:  "wss://host.example.com:17070/",
}, {
	addr: "/bad",
	err:  `invalid API endpoint "/bad"`,
}, {
	addr: "host:not-a-port",
	err:  `invalid API endpoint "host:not-a-port"`,
}, {
	addr: "host:1:2",
	err:  `invalid API endpoint "host:1:2"`,
}}

func (s *endpointSuite) TestAddrValidation(c *gc.C) {
	for i, test := range addrTests {
		c.Logf("test %d: %q", i, test.addr)
		var dialed string
		ep := api.Endpoint{
			Addr:    test.addr,
			Version: api.Juju1,
			DialOpts: api.DialOpts{
				DialWebsocket: func(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error) {
					dialed = urlStr
					return newStubTransport(), nil
				},
			},
		}
		client, err := ep.Connect(context.Background())
		if test.err != "" {
			c.Check(err, gc.ErrorMatches, test.err)
			c.Check(api.IsInvalidEndpoint(err), jc.IsTrue)
			continue
		}
		c.Assert(err, jc.ErrorIsNil)
		c.Check(dialed, gc.Equals, test.url)
		c.Assert(client.Close(), jc.ErrorIsNil)
	}
}

func (s *endpointSuite) TestModelScopedURL(c *gc.C) {
	var dialed string
	ep := api.Endpoint{
		Addr:      "10.0.3.1",
		ModelUUID: "some-uuid",
		Version:   api.Juju2,
		DialOpts: api.DialOpts{
			DialWebsocket: func(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error) {
				dialed = urlStr
				return newStubTransport(), nil
			},
		},
	}
	client, err := ep.Connect(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	defer client.Close()
	c.Check(dialed, gc.Equals, "wss://10.0.3.1:17070/model/some-uuid/api")
}

func (s *endpointSuite) TestConnectRetries(c *gc.C) {
	attempts := 0
	ep := api.Endpoint{
		Addr:    "10.0.3.1",
		Version: api.Juju2,
		DialOpts: api.DialOpts{
			Attempts:   3,
			RetryDelay: time.Millisecond,
			DialWebsocket: func(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error) {
				attempts++
				return nil, errors.New("connection refused")
			},
		},
	}
	_, err := ep.Connect(context.Background())
	c.Assert(err, gc.ErrorMatches, `cannot connect to API endpoint .*: .*connection refused.*`)
	c.Check(attempts, gc.Equals, 3)
}

func (s *endpointSuite) TestConnectInsecureWithoutCACert(c *gc.C) {
	var config *tls.Config
	ep := api.Endpoint{
		Addr:    "10.0.3.1",
		Version: api.Juju2,
		DialOpts: api.DialOpts{
			DialWebsocket: func(ctx context.Context, urlStr string, tlsConfig *tls.Config) (rpc.Transport, error) {
				config = tlsConfig
				return newStubTransport(), nil
			},
		},
	}
	client, err := ep.Connect(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	defer client.Close()
	c.Check(config.InsecureSkipVerify, jc.IsTrue)
}
