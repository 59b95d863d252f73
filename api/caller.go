// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"gopkg.in/yaml.v2"

	"github.com/juju/jujuapi/rpc"
	"github.com/juju/jujuapi/rpc/params"
)

// apiCaller carries the operations whose request and response shapes
// are common to both API generations, parameterized by the dialect
// bound at construction. The generation-specific operations live on
// the concrete client types that embed it.
type apiCaller struct {
	conn    Caller
	dialect *dialect
}

// call converts the parameter keys to the dialect's wire spelling
// and issues the request with the dialect's facade version.
func (c *apiCaller) call(ctx context.Context, facade, request, id string, p map[string]interface{}) (map[string]interface{}, error) {
	body, err := c.conn.Call(ctx, rpc.Request{
		Type:    facade,
		Version: c.dialect.facadeVersion(facade, request),
		Id:      id,
		Action:  request,
	}, c.dialect.convertParams(p))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return body, nil
}

// Close closes the connection to the API server.
func (c *apiCaller) Close() error {
	return c.conn.Close()
}

// WatchAll starts a watch over the whole model.
func (c *apiCaller) WatchAll(ctx context.Context) (string, error) {
	body, err := c.call(ctx, "Client", "WatchAll", "", nil)
	if err != nil {
		return "", errors.Trace(err)
	}
	id, err := requireString(body, c.dialect.param("watcher-id"))
	return id, errors.Trace(err)
}

// AllWatcherNext returns the next batch of changes from the watcher.
func (c *apiCaller) AllWatcherNext(ctx context.Context, watcherId string) ([]Delta, error) {
	body, err := c.call(ctx, "AllWatcher", "Next", watcherId, nil)
	if err != nil {
		if params.IsCodeStoppedWatcher(err) {
			return nil, errors.WithType(err, ErrAllWatcherStopped)
		}
		return nil, errors.Trace(err)
	}
	raw, ok := body[c.dialect.param("deltas")].([]interface{})
	if !ok {
		return nil, malformedResponsef("malformed response %v", body)
	}
	return c.dialect.parseDeltas(raw)
}

// AddMachine adds a machine or container to the model.
func (c *apiCaller) AddMachine(ctx context.Context, args AddMachineArgs) (string, error) {
	machine := map[string]interface{}{
		"jobs": []interface{}{"JobHostUnits"},
	}
	if args.Scope != "" && args.Directive != "" {
		machine["placement"] = map[string]interface{}{
			"scope":     args.Scope,
			"directive": args.Directive,
		}
	}
	if args.ParentId != "" {
		machine["parent-id"] = args.ParentId
		machine["container-type"] = c.dialect.containerType
	}
	if args.Series != "" {
		machine["series"] = args.Series
	}
	body, err := c.call(ctx, "Client", "AddMachines", "", map[string]interface{}{
		"params": []interface{}{machine},
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	machines := listField(body, c.dialect.param("machines"))
	if len(machines) == 0 {
		return "", malformedResponsef("malformed response %v", body)
	}
	first, ok := machines[0].(map[string]interface{})
	if !ok {
		return "", malformedResponsef("malformed response %v", body)
	}
	id, err := requireString(first, c.dialect.param("machine"))
	return id, errors.Trace(err)
}

// DestroyMachines forcibly releases the given machines.
func (c *apiCaller) DestroyMachines(ctx context.Context, machineIds ...string) error {
	ids := make([]interface{}, len(machineIds))
	for i, id := range machineIds {
		ids[i] = id
	}
	_, err := c.call(ctx, "Client", "DestroyMachines", "", map[string]interface{}{
		"force":         true,
		"machine-names": ids,
	})
	return errors.Trace(err)
}

// AddCharm adds a charm to the model so it can be deployed.
func (c *apiCaller) AddCharm(ctx context.Context, charmURL string) error {
	body, err := c.call(ctx, "Client", "AddCharm", "", map[string]interface{}{
		"url": charmURL,
	})
	if err != nil {
		return errors.Trace(err)
	}
	// Some server versions report the failure in the body rather
	// than the message envelope, without an error code.
	if message := stringField(body, "Error"); message != "" {
		return &params.Error{Message: message}
	}
	return nil
}

// ApplicationDestroy destroys an application.
func (c *apiCaller) ApplicationDestroy(ctx context.Context, application string) error {
	_, err := c.call(ctx, c.dialect.applicationFacade, "Destroy", "", map[string]interface{}{
		"application": application,
	})
	return errors.Trace(err)
}

// Run runs commands on the given units.
func (c *apiCaller) Run(ctx context.Context, commands string, units []string, timeout time.Duration) (map[string]RunResult, error) {
	us := make([]interface{}, len(units))
	for i, unit := range units {
		us[i] = unit
	}
	body, err := c.call(ctx, c.dialect.runFacade, "Run", "", map[string]interface{}{
		"commands": commands,
		// The server wants an integral nanosecond count.
		"timeout": int64(timeout),
		"units":   us,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	raw, ok := body[c.dialect.param("results")].([]interface{})
	if !ok {
		return nil, malformedResponsef("malformed response %v", body)
	}
	results := make(map[string]RunResult, len(raw))
	for _, r := range raw {
		result, ok := r.(map[string]interface{})
		if !ok {
			return nil, malformedResponsef("malformed result %v", r)
		}
		unit, err := requireString(result, "UnitId")
		if err != nil {
			return nil, errors.Trace(err)
		}
		runResult, err := parseRunResult(result)
		if err != nil {
			return nil, errors.Trace(err)
		}
		results[unit] = runResult
	}
	return results, nil
}

// runOnAllMachines issues the RunOnAllMachines request; the response
// shape is generation-specific and parsed by the concrete clients.
func (c *apiCaller) runOnAllMachines(ctx context.Context, commands string, timeout time.Duration) (map[string]interface{}, error) {
	return c.call(ctx, c.dialect.runFacade, "RunOnAllMachines", "", map[string]interface{}{
		"commands": commands,
		"timeout":  int64(timeout),
	})
}

// EnqueueAction enqueues an action on a unit.
func (c *apiCaller) EnqueueAction(ctx context.Context, action, unit string, parameters map[string]interface{}) (string, error) {
	if !names.IsValidUnit(unit) {
		return "", errors.NotValidf("unit name %q", unit)
	}
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	body, err := c.call(ctx, "Action", "Enqueue", "", map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"name":       action,
				"receiver":   names.NewUnitTag(unit).String(),
				"parameters": parameters,
			},
		},
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	ids, err := c.parseEnqueuedActions(body)
	if err != nil {
		return "", errors.Trace(err)
	}
	if len(ids) == 0 {
		return "", malformedResponsef("expected 1 result, got none")
	}
	return ids[0], nil
}

// parseEnqueuedActions extracts the ids of the enqueued actions from
// an action-results response.
func (c *apiCaller) parseEnqueuedActions(body map[string]interface{}) ([]string, error) {
	raw, ok := body["results"].([]interface{})
	if !ok {
		return nil, malformedResponsef("malformed response %v", body)
	}
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		result, ok := r.(map[string]interface{})
		if !ok {
			return nil, malformedResponsef("malformed result %v", r)
		}
		if err := c.resultError(result); err != nil {
			return nil, errors.Trace(err)
		}
		tag, err := requireString(mapField(result, "action"), "tag")
		if err != nil {
			return nil, errors.Trace(err)
		}
		ids = append(ids, strings.TrimPrefix(tag, "action-"))
	}
	return ids, nil
}

// resultError converts the error sub-structure of a result, keyed
// with the dialect's spelling, into a *params.Error.
func (c *apiCaller) resultError(result map[string]interface{}) error {
	raw, ok := result["error"]
	if !ok || raw == nil {
		return nil
	}
	e, ok := raw.(map[string]interface{})
	if !ok {
		return malformedResponsef("malformed result %v", result)
	}
	message := stringField(e, c.dialect.param("message"))
	if message == "" {
		message = "error"
	}
	return &params.Error{
		Message: message,
		Code:    stringField(e, c.dialect.param("code")),
	}
}

// serviceDeployParams builds the deploy request parameters shared by
// both generations. An application deployed with no placement is
// treated as subordinate and gets zero units.
func (c *apiCaller) serviceDeployParams(application, charmURL, scope, directive string, config map[string]interface{}) (map[string]interface{}, error) {
	if config == nil {
		config = map[string]interface{}{}
	}
	// The YAML form allows setting empty values for keys.
	configYAML, err := yaml.Marshal(map[string]interface{}{application: config})
	if err != nil {
		return nil, errors.Annotate(err, "cannot marshal charm config")
	}
	p := map[string]interface{}{
		"application-name": application,
		"charm-url":        charmURL,
		"config-yaml":      string(configYAML),
		"num-units":        1,
	}
	if scope != "" || directive != "" {
		for key, value := range c.dialect.placement(scope, directive) {
			p[key] = value
		}
	} else {
		p["num-units"] = 0
	}
	return p, nil
}

// parseAddUnits extracts the name of the single added unit.
func (c *apiCaller) parseAddUnits(body map[string]interface{}) (string, error) {
	units := listField(body, c.dialect.param("units"))
	if len(units) == 0 {
		return "", malformedResponsef("malformed response %v", body)
	}
	unit, ok := units[0].(string)
	if !ok {
		return "", malformedResponsef("malformed response %v", body)
	}
	return unit, nil
}

// parseServiceGet converts a configuration-get response.
func (c *apiCaller) parseServiceGet(body map[string]interface{}) (*ApplicationConfig, error) {
	application, err := requireString(body, c.dialect.param("application"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	charm, err := requireString(body, c.dialect.param("charm"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ApplicationConfig{
		Application: application,
		Charm:       charm,
		Constraints: mapField(body, c.dialect.param("constraints")),
		Config:      mapField(body, c.dialect.param("config")),
	}, nil
}

// parseAPIInfo converts a login response into an APIInfo, keeping
// only the endpoints usable from outside the controller machine.
func (c *apiCaller) parseAPIInfo(body map[string]interface{}) (*APIInfo, error) {
	info := &APIInfo{}
	if tag := stringField(body, c.dialect.param("model-tag")); tag != "" {
		info.ModelUUID = strings.TrimPrefix(tag, c.dialect.infoEntityPrefix)
	}
	for _, s := range listField(body, c.dialect.param("servers")) {
		server, ok := s.([]interface{})
		if !ok {
			return nil, malformedResponsef("malformed response %v", body)
		}
		for _, e := range server {
			endpoint, ok := e.(map[string]interface{})
			if !ok {
				return nil, malformedResponsef("malformed response %v", body)
			}
			if !c.dialect.isUsableEndpoint(endpoint) {
				continue
			}
			value, err := requireString(endpoint, c.dialect.param("value"))
			if err != nil {
				return nil, errors.Trace(err)
			}
			info.Endpoints = append(info.Endpoints,
				fmt.Sprintf("%s:%d", value, intField(endpoint, c.dialect.param("port"))))
		}
	}
	return info, nil
}

// parseModelInfoResult converts the field bag of a model-info result.
func (c *apiCaller) parseModelInfoResult(result map[string]interface{}) (*ModelInfo, error) {
	d := c.dialect
	info := &ModelInfo{
		ControllerUUID:     stringField(result, d.param("controller-uuid")),
		CloudTag:           stringField(result, d.param("cloud-tag")),
		CloudRegion:        stringField(result, d.param("cloud-region")),
		CloudCredentialTag: stringField(result, d.param("cloud-credential-tag")),
	}
	var err error
	if info.Name, err = requireString(result, d.param("name")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.ProviderType, err = requireString(result, d.param("provider-type")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.DefaultSeries, err = requireString(result, d.param("default-series")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.UUID, err = requireString(result, d.param("uuid")); err != nil {
		return nil, errors.Trace(err)
	}
	return info, nil
}

// parseRunResult converts one command result, decoding the base64
// output streams.
func parseRunResult(result map[string]interface{}) (RunResult, error) {
	stdout, err := base64Field(result, "Stdout")
	if err != nil {
		return RunResult{}, errors.Trace(err)
	}
	stderr, err := base64Field(result, "Stderr")
	if err != nil {
		return RunResult{}, errors.Trace(err)
	}
	return RunResult{
		Stdout: stdout,
		Stderr: stderr,
		Code:   intField(result, "Code"),
		Error:  stringField(result, "Error"),
	}, nil
}

// extractSingleResult unwraps a results list that must hold exactly
// one entry.
func extractSingleResult(body map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := body["results"].([]interface{})
	if !ok {
		return nil, malformedResponsef("malformed response %v", body)
	}
	if len(raw) == 0 {
		return nil, malformedResponsef("expected 1 result, got none")
	}
	if len(raw) > 1 {
		return nil, malformedResponsef("expected 1 result, got %d", len(raw))
	}
	result, ok := raw[0].(map[string]interface{})
	if !ok {
		return nil, malformedResponsef("malformed result %v", raw[0])
	}
	return result, nil
}

// handleAPIError converts the error sub-structure of a result, keyed
// with the Juju 2 literal spelling, into a *params.Error.
func handleAPIError(result map[string]interface{}) error {
	raw, ok := result["error"]
	if !ok || raw == nil {
		return nil
	}
	e, ok := raw.(map[string]interface{})
	if !ok || len(e) == 0 {
		return nil
	}
	message, okMessage := e["message"].(string)
	code, okCode := e["code"].(string)
	if !okMessage || !okCode {
		return malformedResponsef("malformed result %v", result)
	}
	if message == "" {
		message = "error"
	}
	return &params.Error{Message: message, Code: code}
}

// parseErrorResults fails on the first error found in an
// error-results response.
func parseErrorResults(body map[string]interface{}) error {
	raw, ok := body["results"].([]interface{})
	if !ok {
		return malformedResponsef("malformed response %v", body)
	}
	for _, r := range raw {
		result, ok := r.(map[string]interface{})
		if !ok {
			return malformedResponsef("malformed result %v", r)
		}
		if err := handleAPIError(result); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
