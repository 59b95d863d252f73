// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"strings"

	"github.com/juju/collections/set"
)

// MachineScope is the placement scope for directives that target a
// machine or container id.
const MachineScope = "#"

// dialect holds the immutable wire conventions of one API
// generation: facade names and versions, the parameter-key rename
// table with its casing fallback, and the handful of response shapes
// that differ between Juju 1 and Juju 2. A dialect is bound to a
// client at construction and never mutated.
type dialect struct {
	// applicationFacade names the facade acting on applications
	// ("Service" before the Juju 2.0 rename).
	applicationFacade string

	// infoEntityPrefix is the tag prefix the login response uses
	// for the model identifier.
	infoEntityPrefix string

	// containerType is the container technology used for machines
	// created with a parent id.
	containerType string

	// runFacade names the facade carrying the Run requests.
	runFacade string

	// facadeVersions maps facade name to request name to the facade
	// version to send. Requests not listed are sent without a
	// version, which the server reads as version 0.
	facadeVersions map[string]map[string]int

	// renames maps canonical hyphenated parameter keys to their
	// wire spelling. Keys not listed fall back to transform.
	renames map[string]string

	// transform is the generic casing fallback applied to any key
	// missing from renames. Adding a new parameter key without
	// considering the rename table is a known source of silent wire
	// incompatibility, so keep the table in sync.
	transform func(string) string

	// skipConversion holds keys whose mapping values are passed
	// through without key conversion (opaque user-supplied data
	// such as charm options and annotation pairs).
	skipConversion set.Strings

	// placement builds the placement parameter from a (scope,
	// directive) pair; the shape differs by generation.
	placement func(scope, directive string) map[string]interface{}

	// deltaStatus extracts the (status, status message) pair from a
	// machine or unit delta, whose shape differs by generation.
	deltaStatus func(d *dialect, fields map[string]interface{}) (string, string)

	// deltaKindAliases maps legacy delta kind labels to their
	// canonical spelling.
	deltaKindAliases map[string]string

	// perModelPath is true when the connection URL carries a
	// model-scoped path segment.
	perModelPath bool
}

// param returns the wire spelling of a canonical parameter key.
func (d *dialect) param(key string) string {
	if renamed, ok := d.renames[key]; ok {
		return renamed
	}
	return d.transform(key)
}

// facadeVersion returns the facade version to send for a request, or
// zero when the request is unversioned.
func (d *dialect) facadeVersion(facade, request string) int {
	return d.facadeVersions[facade][request]
}

// convertParams converts the keys of a parameter mapping to the
// dialect's wire spelling, recursing through nested mappings and
// lists. Values under skipConversion keys are passed through
// untouched. A nil mapping converts to an empty one.
func (d *dialect) convertParams(p map[string]interface{}) map[string]interface{} {
	converted := make(map[string]interface{}, len(p))
	for key, value := range p {
		switch v := value.(type) {
		case []interface{}:
			items := make([]interface{}, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					items[i] = d.convertParams(m)
				} else {
					items[i] = item
				}
			}
			value = items
		case map[string]interface{}:
			if !d.skipConversion.Contains(key) {
				value = d.convertParams(v)
			}
		}
		converted[d.param(key)] = value
	}
	return converted
}

// juju2Placement builds the placement list used from Juju 2.0 on.
// Nothing is produced when neither scope nor directive is given; the
// scope defaults to MachineScope when only a directive is given.
func juju2Placement(scope, directive string) map[string]interface{} {
	if scope == "" && directive == "" {
		return map[string]interface{}{}
	}
	if scope == "" {
		scope = MachineScope
	}
	return map[string]interface{}{
		"placement": []interface{}{
			map[string]interface{}{
				"scope":     scope,
				"directive": directive,
			},
		},
	}
}

// juju1Placement builds the bare machine spec Juju 1 understands;
// the scope has no wire representation there.
func juju1Placement(scope, directive string) map[string]interface{} {
	return map[string]interface{}{"ToMachineSpec": directive}
}

// deltaKind canonicalizes a delta kind label.
func (d *dialect) deltaKind(kind string) string {
	if alias, ok := d.deltaKindAliases[kind]; ok {
		return alias
	}
	return kind
}

// paramSkipConversion lists the keys whose values hold opaque
// user-supplied mappings.
var paramSkipConversion = set.NewStrings("Options", "Pairs", "parameters", "Config")

// agentStatusDelta reads the nested agent-status sub-structure used
// by Juju 2 deltas.
func agentStatusDelta(d *dialect, fields map[string]interface{}) (string, string) {
	status, _ := fields[d.param("agent-status")].(map[string]interface{})
	current, _ := status[d.param("current")].(string)
	message, _ := status[d.param("message")].(string)
	return current, message
}

// flatStatusDelta reads the flat Status/StatusInfo pair used by
// Juju 1 deltas.
func flatStatusDelta(d *dialect, fields map[string]interface{}) (string, string) {
	status, _ := fields["Status"].(string)
	statusInfo, _ := fields["StatusInfo"].(string)
	return status, statusInfo
}

// juju2Dialect is the wire convention of Juju 2.x: lowercase
// hyphenated keys, versioned facades, per-model connection URLs.
var juju2Dialect = &dialect{
	applicationFacade: "Application",
	infoEntityPrefix:  "model-",
	containerType:     "lxd",
	runFacade:         "Action",
	facadeVersions: map[string]map[string]int{
		"Admin": {
			"Login": 3},
		"Action": {
			"Enqueue":          2,
			"RunOnAllMachines": 2,
			"Run":              2},
		"AllWatcher": {
			"Next": 1},
		"Annotations": {
			"Set": 2},
		"Application": {
			"AddRelation": 1,
			"AddUnits":    1,
			"Deploy":      1,
			"Destroy":     1,
			"Get":         1,
			"Set":         1},
		"Client": {
			"AddMachines":     1,
			"AddCharm":        1,
			"DestroyMachines": 1,
			"WatchAll":        1},
		"Cloud": {
			"Cloud": 1},
		"ModelManager": {
			"ModelInfo": 2},
	},
	renames: map[string]string{
		"application-name": "application",
	},
	// Juju 2.0 keys are almost exclusively lowercase and
	// hyphenated already.
	transform:        func(key string) string { return key },
	skipConversion:   paramSkipConversion,
	placement:        juju2Placement,
	deltaStatus:      agentStatusDelta,
	deltaKindAliases: map[string]string{},
	perModelPath:     true,
}

// juju1Dialect is the wire convention of Juju 1.x: CamelCase keys,
// unversioned facades, "Service" terminology.
var juju1Dialect = &dialect{
	applicationFacade: "Service",
	infoEntityPrefix:  "environment-",
	containerType:     "lxc",
	runFacade:         "Client",
	facadeVersions:    map[string]map[string]int{},
	renames: map[string]string{
		"agent-status":     "JujuStatus",
		"application":      "Service",
		"application-name": "ServiceName",
		"charm-url":        "CharmURL",
		"config-yaml":      "ConfigYAML",
		"model-tag":        "EnvironTag",
		"params":           "MachineParams",
		"space-name":       "NetworkName",
		"watcher-id":       "AllWatcherId",
		"uuid":             "UUID",
	},
	transform:      toCamelCase,
	skipConversion: paramSkipConversion,
	placement:      juju1Placement,
	deltaStatus:    flatStatusDelta,
	deltaKindAliases: map[string]string{
		"service": "application",
	},
	perModelPath: false,
}

// toCamelCase converts a hyphen-delimited key to the CamelCase
// spelling Juju 1 expects. Keys that are already uppercase and
// unhyphenated pass through.
func toCamelCase(key string) string {
	if key == "" {
		return key
	}
	if !strings.Contains(key, "-") && key[0] >= 'A' && key[0] <= 'Z' {
		return key
	}
	parts := strings.Split(key, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, "")
}
