// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
)

// juju2Client speaks the Juju 2.x dialect.
type juju2Client struct {
	*apiCaller
}

// NewJuju2Client returns a Client for a Juju 2.x controller connected
// over the given connection.
func NewJuju2Client(conn Caller) Client {
	return &juju2Client{&apiCaller{conn: conn, dialect: juju2Dialect}}
}

// Login authenticates against the Admin facade. Bare usernames are
// validated and normalized to user tags.
func (c *juju2Client) Login(ctx context.Context, username, password string) (*APIInfo, error) {
	tag := username
	if !strings.HasPrefix(tag, "user-") {
		if !names.IsValidUser(username) {
			return nil, errors.NotValidf("username %q", username)
		}
		tag = names.NewUserTag(username).String()
	}
	body, err := c.call(ctx, "Admin", "Login", "", map[string]interface{}{
		"auth-tag":    tag,
		"credentials": password,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return c.parseAPIInfo(body)
}

func (c *juju2Client) ModelInfo(ctx context.Context, modelUUID string) (*ModelInfo, error) {
	body, err := c.call(ctx, "ModelManager", "ModelInfo", "", map[string]interface{}{
		"entities": []interface{}{
			map[string]interface{}{"tag": names.NewModelTag(modelUUID).String()},
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	result, err := extractSingleResult(body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := handleAPIError(result); err != nil {
		return nil, errors.Trace(err)
	}
	info, ok := result["result"].(map[string]interface{})
	if !ok {
		return nil, malformedResponsef("malformed result %v", result)
	}
	return c.parseModelInfoResult(info)
}

func (c *juju2Client) Cloud(ctx context.Context, cloudTag string) (*CloudInfo, error) {
	body, err := c.call(ctx, "Cloud", "Cloud", "", map[string]interface{}{
		"entities": []interface{}{
			map[string]interface{}{"tag": cloudTag},
		},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	result, err := extractSingleResult(body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := c.resultError(result); err != nil {
		return nil, errors.Trace(err)
	}
	cloud, ok := result["cloud"].(map[string]interface{})
	if !ok {
		return nil, malformedResponsef("malformed result %v", result)
	}
	info := &CloudInfo{
		Type:            stringField(cloud, "type"),
		AuthTypes:       stringListField(cloud, "auth-types"),
		Endpoint:        stringField(cloud, "endpoint"),
		StorageEndpoint: stringField(cloud, "storage-endpoint"),
	}
	if info.AuthTypes == nil {
		info.AuthTypes = []string{}
	}
	info.Regions = []map[string]interface{}{}
	for _, r := range listField(cloud, "regions") {
		if region, ok := r.(map[string]interface{}); ok {
			info.Regions = append(info.Regions, region)
		}
	}
	return info, nil
}

func (c *juju2Client) ServiceDeploy(ctx context.Context, application, charmURL, scope, directive string, config map[string]interface{}) error {
	p, err := c.serviceDeployParams(application, charmURL, scope, directive, config)
	if err != nil {
		return errors.Trace(err)
	}
	p["channel"] = "stable"
	body, err := c.call(ctx, "Application", "Deploy", "", map[string]interface{}{
		"applications": []interface{}{p},
	})
	if err != nil {
		return errors.Trace(err)
	}
	return parseErrorResults(body)
}

func (c *juju2Client) AddUnit(ctx context.Context, application, scope, directive string) (string, error) {
	p := map[string]interface{}{
		"application": application,
		"num-units":   1,
	}
	for key, value := range c.dialect.placement(scope, directive) {
		p[key] = value
	}
	body, err := c.call(ctx, "Application", "AddUnits", "", p)
	if err != nil {
		return "", errors.Trace(err)
	}
	return c.parseAddUnits(body)
}

func (c *juju2Client) ServiceGet(ctx context.Context, application string) (*ApplicationConfig, error) {
	body, err := c.call(ctx, "Application", "Get", "", map[string]interface{}{
		"application": application,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return c.parseServiceGet(body)
}

func (c *juju2Client) ServiceSet(ctx context.Context, application string, options map[string]interface{}) error {
	_, err := c.call(ctx, "Application", "Set", "", map[string]interface{}{
		"application": application,
		"options":     options,
	})
	return errors.Trace(err)
}

func (c *juju2Client) AddRelation(ctx context.Context, endpointA, endpointB string) error {
	_, err := c.call(ctx, "Application", "AddRelation", "", map[string]interface{}{
		"Endpoints": []interface{}{endpointA, endpointB},
	})
	return errors.Trace(err)
}

func (c *juju2Client) SetAnnotations(ctx context.Context, entityType, entityId string, pairs map[string]string) error {
	annotations := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		annotations[k] = v
	}
	_, err := c.call(ctx, "Annotations", "Set", "", map[string]interface{}{
		"annotations": []interface{}{
			map[string]interface{}{
				"entity":      entityType + "-" + entityId,
				"annotations": annotations,
			},
		},
	})
	return errors.Trace(err)
}

// RunOnAllMachines enqueues the command as an action on every machine
// and returns the action ids for the caller to poll.
func (c *juju2Client) RunOnAllMachines(ctx context.Context, commands string, timeout time.Duration) (*RunOnAllResult, error) {
	body, err := c.runOnAllMachines(ctx, commands, timeout)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids, err := c.parseEnqueuedActions(body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &RunOnAllResult{ActionIds: ids}, nil
}
