// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package api provides versioned clients for the controller's
// websocket API. Two wire dialects of the conceptually same API are
// supported, selected by controller generation; both implement the
// Client interface.
//
// Example:
//
//	ep := api.Endpoint{Addr: "10.0.3.1:17070", Version: api.Juju2, ModelUUID: uuid}
//	client, err := ep.Connect(ctx)
//	...
//	info, err := client.Login(ctx, "admin", password)
package api

import (
	"context"
	"time"

	"github.com/juju/loggo"

	"github.com/juju/jujuapi/rpc"
)

var logger = loggo.GetLogger("jujuapi.api")

// Caller abstracts the RPC connection a client runs over. It is
// implemented by *rpc.Conn.
type Caller interface {
	// Call invokes a request and returns its response body.
	Call(ctx context.Context, req rpc.Request, params map[string]interface{}) (map[string]interface{}, error)

	// Close shuts the connection down and returns once every
	// outstanding call has been terminated.
	Close() error

	// Dead returns a channel closed when the connection is gone.
	Dead() <-chan struct{}
}

var _ Caller = (*rpc.Conn)(nil)

// AddMachineArgs holds the optional arguments to AddMachine. Scope
// and Directive place the machine; ParentId asks for a container on
// an existing machine; Series selects the OS series.
type AddMachineArgs struct {
	Scope     string
	Directive string
	ParentId  string
	Series    string
}

// Client exposes the controller operations shared by both API
// generations. Operations the server reports errors for fail with an
// error carrying a *params.Error in its chain, classified by its
// error code.
type Client interface {
	// Login authenticates the connection. The username is
	// normalized into tag form when not already tagged. The
	// returned APIInfo lists the usable controller endpoints and
	// the identifier of the connected model.
	Login(ctx context.Context, username, password string) (*APIInfo, error)

	// ModelInfo returns information about the model with the given
	// uuid. Juju 1 controllers manage a single model and ignore the
	// argument.
	ModelInfo(ctx context.Context, modelUUID string) (*ModelInfo, error)

	// Cloud returns information about the model's cloud. Not
	// supported by Juju 1 controllers.
	Cloud(ctx context.Context, cloudTag string) (*CloudInfo, error)

	// WatchAll starts a watch over the whole model and returns the
	// watcher id to pass to AllWatcherNext.
	WatchAll(ctx context.Context) (string, error)

	// AllWatcherNext returns the next batch of changes from the
	// watcher. The server blocks the request until there is
	// something to report, possibly indefinitely. When the watcher
	// has been stopped server-side the error satisfies
	// IsAllWatcherStopped and the watch must be re-established.
	AllWatcherNext(ctx context.Context, watcherId string) ([]Delta, error)

	// AddMachine adds a machine or container to the model and
	// returns its machine id.
	AddMachine(ctx context.Context, args AddMachineArgs) (string, error)

	// AddUnit adds a unit to an application, placed according to
	// (scope, directive), and returns the new unit's name.
	AddUnit(ctx context.Context, application, scope, directive string) (string, error)

	// ServiceDeploy deploys a charm as a new application. A nil
	// config deploys with charm defaults; an application deployed
	// with no placement is treated as subordinate.
	ServiceDeploy(ctx context.Context, application, charmURL, scope, directive string, config map[string]interface{}) error

	// ServiceGet returns the application's current configuration.
	ServiceGet(ctx context.Context, application string) (*ApplicationConfig, error)

	// ServiceSet updates the application's configuration options.
	ServiceSet(ctx context.Context, application string, options map[string]interface{}) error

	// AddRelation relates two application endpoints, such as
	// "mysql:db" and "wordpress:db".
	AddRelation(ctx context.Context, endpointA, endpointB string) error

	// ApplicationDestroy destroys an application.
	ApplicationDestroy(ctx context.Context, application string) error

	// DestroyMachines forcibly releases the given machines along
	// with any containers and units on them.
	DestroyMachines(ctx context.Context, machineIds ...string) error

	// SetAnnotations adds the given annotation pairs to the entity
	// with the given type and id.
	SetAnnotations(ctx context.Context, entityType, entityId string, pairs map[string]string) error

	// AddCharm adds a charm to the model so it can be deployed.
	AddCharm(ctx context.Context, charmURL string) error

	// Run runs commands on the given units and returns the result
	// per unit.
	Run(ctx context.Context, commands string, units []string, timeout time.Duration) (map[string]RunResult, error)

	// RunOnAllMachines runs commands on every machine. The result
	// shape is generation-specific; see RunOnAllResult.
	RunOnAllMachines(ctx context.Context, commands string, timeout time.Duration) (*RunOnAllResult, error)

	// EnqueueAction enqueues an action on a unit and returns the
	// action id.
	EnqueueAction(ctx context.Context, action, unit string, parameters map[string]interface{}) (string, error)

	// Close closes the connection to the API server and returns
	// once every outstanding call has been terminated.
	Close() error
}
