// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// juju1Client speaks the Juju 1.x dialect.
type juju1Client struct {
	*apiCaller
}

// NewJuju1Client returns a Client for a Juju 1.x controller connected
// over the given connection.
func NewJuju1Client(conn Caller) Client {
	return &juju1Client{&apiCaller{conn: conn, dialect: juju1Dialect}}
}

// Login authenticates against the Admin facade. Juju 1 accepts the
// username as given, without tag normalization.
func (c *juju1Client) Login(ctx context.Context, username, password string) (*APIInfo, error) {
	body, err := c.call(ctx, "Admin", "Login", "", map[string]interface{}{
		"AuthTag":  username,
		"Password": password,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return c.parseAPIInfo(body)
}

// ModelInfo returns information about the controller's only model;
// Juju 1 controllers manage a single model and ignore the uuid.
func (c *juju1Client) ModelInfo(ctx context.Context, modelUUID string) (*ModelInfo, error) {
	body, err := c.call(ctx, "Client", "EnvironmentInfo", "", nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return c.parseModelInfoResult(body)
}

func (c *juju1Client) Cloud(ctx context.Context, cloudTag string) (*CloudInfo, error) {
	return nil, errors.NotSupportedf("cloud information under Juju 1.x")
}

func (c *juju1Client) ServiceDeploy(ctx context.Context, application, charmURL, scope, directive string, config map[string]interface{}) error {
	p, err := c.serviceDeployParams(application, charmURL, scope, directive, config)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = c.call(ctx, "Client", "ServiceDeploy", "", p)
	return errors.Trace(err)
}

func (c *juju1Client) AddUnit(ctx context.Context, application, scope, directive string) (string, error) {
	p := map[string]interface{}{
		"application-name": application,
		"num-units":        1,
	}
	for key, value := range c.dialect.placement(scope, directive) {
		p[key] = value
	}
	body, err := c.call(ctx, "Client", "AddServiceUnits", "", p)
	if err != nil {
		return "", errors.Trace(err)
	}
	return c.parseAddUnits(body)
}

func (c *juju1Client) ServiceGet(ctx context.Context, application string) (*ApplicationConfig, error) {
	body, err := c.call(ctx, "Client", "ServiceGet", "", map[string]interface{}{
		"ServiceName": application,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return c.parseServiceGet(body)
}

func (c *juju1Client) ServiceSet(ctx context.Context, application string, options map[string]interface{}) error {
	_, err := c.call(ctx, "Client", "ServiceSet", "", map[string]interface{}{
		"ServiceName": application,
		"Options":     options,
	})
	return errors.Trace(err)
}

func (c *juju1Client) AddRelation(ctx context.Context, endpointA, endpointB string) error {
	_, err := c.call(ctx, "Client", "AddRelation", "", map[string]interface{}{
		"Endpoints": []interface{}{endpointA, endpointB},
	})
	return errors.Trace(err)
}

func (c *juju1Client) SetAnnotations(ctx context.Context, entityType, entityId string, pairs map[string]string) error {
	annotations := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		annotations[k] = v
	}
	_, err := c.call(ctx, "Client", "SetAnnotations", "", map[string]interface{}{
		"Tag":   entityType + "-" + entityId,
		"Pairs": annotations,
	})
	return errors.Trace(err)
}

// RunOnAllMachines runs the command synchronously on every machine and
// returns the per-machine results.
func (c *juju1Client) RunOnAllMachines(ctx context.Context, commands string, timeout time.Duration) (*RunOnAllResult, error) {
	body, err := c.runOnAllMachines(ctx, commands, timeout)
	if err != nil {
		return nil, errors.Trace(err)
	}
	raw, ok := body["Results"].([]interface{})
	if !ok {
		return nil, malformedResponsef("malformed response %v", body)
	}
	results := make(map[string]RunResult, len(raw))
	for _, r := range raw {
		result, ok := r.(map[string]interface{})
		if !ok {
			return nil, malformedResponsef("malformed result %v", r)
		}
		machine, err := requireString(result, "MachineId")
		if err != nil {
			return nil, errors.Trace(err)
		}
		runResult, err := parseRunResult(result)
		if err != nil {
			return nil, errors.Trace(err)
		}
		results[machine] = runResult
	}
	return &RunOnAllResult{Results: results}, nil
}
