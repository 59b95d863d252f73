// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"strings"

	"github.com/juju/collections/set"
)

// APIInfo holds the endpoint information reported by a successful
// login: the usable controller endpoints and the uuid of the model
// the connection is scoped to, if any.
type APIInfo struct {
	Endpoints []string
	ModelUUID string
}

// ModelInfo holds information about a model.
type ModelInfo struct {
	Name          string
	ProviderType  string
	DefaultSeries string
	UUID          string

	// Juju 2.x only.
	ControllerUUID     string
	CloudTag           string
	CloudRegion        string
	CloudCredentialTag string
}

// CloudInfo holds information about a single cloud.
type CloudInfo struct {
	Type            string
	AuthTypes       []string
	Endpoint        string
	StorageEndpoint string
	Regions         []map[string]interface{}
}

// stateServerJobs are the machine jobs that mark a state server,
// before and after the Juju 2.0 rename.
var stateServerJobs = set.NewStrings("JobManageEnviron", "JobManageModel")

// MachineInfo holds information about a single machine.
type MachineInfo struct {
	Id         string
	InstanceId string
	Status     string
	StatusInfo string
	Jobs       []string
	Address    string
	HasVote    bool
	WantsVote  bool
}

// IsStateServer reports whether the machine hosts a state server.
func (m *MachineInfo) IsStateServer() bool {
	return !stateServerJobs.Intersection(set.NewStrings(m.Jobs...)).IsEmpty()
}

// ApplicationInfo holds information about a single application.
type ApplicationInfo struct {
	Name        string
	Exposed     bool
	CharmURL    string
	Life        string
	Constraints map[string]interface{}
	Config      map[string]interface{}
}

// UnitInfo holds information about a single unit.
type UnitInfo struct {
	Name           string
	Application    string
	Series         string
	CharmURL       string
	PublicAddress  string
	PrivateAddress string
	MachineId      string
	Ports          []interface{}
	Status         string
	StatusInfo     string
}

// ActionInfo holds information about an action.
type ActionInfo struct {
	Id       string
	Name     string
	Receiver string
	Status   string
	Message  string
	Results  map[string]interface{}
}

// AnnotationInfo holds the annotations on a particular entity. The
// entity kind and id are derived from the tag: "unit-mysql-0" is the
// unit "mysql/0".
type AnnotationInfo struct {
	Tag         string
	EntityKind  string
	EntityId    string
	Annotations map[string]string
}

func newAnnotationInfo(tag string, annotations map[string]string) *AnnotationInfo {
	info := &AnnotationInfo{Tag: tag, Annotations: annotations}
	parts := strings.SplitN(tag, "-", 2)
	info.EntityKind = parts[0]
	if len(parts) > 1 {
		if i := strings.LastIndex(parts[1], "-"); i >= 0 {
			info.EntityId = parts[1][:i] + "/" + parts[1][i+1:]
		} else {
			info.EntityId = parts[1]
		}
	}
	return info
}

// ApplicationConfig describes the configuration of a particular
// application, as returned by the Get request.
type ApplicationConfig struct {
	Application string
	Charm       string
	Constraints map[string]interface{}
	Config      map[string]interface{}
}

// HasOptions reports whether the config contains every named option.
func (c *ApplicationConfig) HasOptions(names ...string) bool {
	for _, name := range names {
		if _, ok := c.Config[name]; !ok {
			return false
		}
	}
	return true
}

// Value returns the current value of the named option, or nil if the
// option is absent or unset.
func (c *ApplicationConfig) Value(name string) interface{} {
	option, ok := c.Config[name].(map[string]interface{})
	if !ok {
		return nil
	}
	return option["value"]
}

// RunResult holds the outcome of running a command on one machine or
// unit. Stdout and Stderr are decoded from their base64 wire form.
type RunResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Error  string
}

// RunOnAllResult holds the dialect-specific result of a
// RunOnAllMachines call. Juju 1 servers run the command synchronously
// and report per-machine results; Juju 2 servers enqueue actions and
// report their ids for the caller to poll.
type RunOnAllResult struct {
	ActionIds []string
	Results   map[string]RunResult
}

// Delta is one reported change to a tracked entity, delivered in a
// batch by AllWatcherNext.
type Delta struct {
	// Kind identifies the entity kind: machine, unit, application,
	// action or annotation.
	Kind string

	// Verb is "change" or "remove".
	Verb string

	// Info holds the kind-specific record: *MachineInfo, *UnitInfo,
	// *ApplicationInfo, *ActionInfo or *AnnotationInfo.
	Info interface{}
}
