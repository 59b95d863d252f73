// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"github.com/juju/errors"
)

// parseDeltas converts the raw delta list of an AllWatcher.Next
// response. Each delta arrives as a three element [kind, verb, fields]
// list. Deltas of unknown kinds are silently dropped, for forward
// compatibility with newer servers.
func (d *dialect) parseDeltas(raw []interface{}) ([]Delta, error) {
	deltas := make([]Delta, 0, len(raw))
	for _, r := range raw {
		triple, ok := r.([]interface{})
		if !ok || len(triple) != 3 {
			return nil, malformedResponsef("malformed delta %v", r)
		}
		kind, okKind := triple[0].(string)
		verb, okVerb := triple[1].(string)
		fields, okFields := triple[2].(map[string]interface{})
		if !okKind || !okVerb || !okFields {
			return nil, malformedResponsef("malformed delta %v", r)
		}
		kind = d.deltaKind(kind)
		info, err := d.parseDeltaInfo(kind, fields)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if info == nil {
			logger.Tracef("dropping delta of unknown kind %q", kind)
			continue
		}
		deltas = append(deltas, Delta{Kind: kind, Verb: verb, Info: info})
	}
	return deltas, nil
}

func (d *dialect) parseDeltaInfo(kind string, fields map[string]interface{}) (interface{}, error) {
	switch kind {
	case "unit":
		return d.parseUnitDelta(fields)
	case "application":
		return d.parseApplicationDelta(fields)
	case "annotation":
		return d.parseAnnotationDelta(fields)
	case "machine":
		return d.parseMachineDelta(fields)
	case "action":
		return d.parseActionDelta(fields)
	}
	return nil, nil
}

func (d *dialect) parseUnitDelta(fields map[string]interface{}) (*UnitInfo, error) {
	name, err := requireString(fields, d.param("name"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	application, err := requireString(fields, d.param("application"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	status, statusInfo := d.deltaStatus(d, fields)
	return &UnitInfo{
		Name:           name,
		Application:    application,
		Series:         stringField(fields, d.param("series")),
		CharmURL:       stringField(fields, d.param("charm-url")),
		PublicAddress:  stringField(fields, d.param("public-address")),
		PrivateAddress: stringField(fields, d.param("private-address")),
		MachineId:      stringField(fields, d.param("machine-id")),
		Ports:          listField(fields, d.param("ports")),
		Status:         status,
		StatusInfo:     statusInfo,
	}, nil
}

func (d *dialect) parseApplicationDelta(fields map[string]interface{}) (*ApplicationInfo, error) {
	name, err := requireString(fields, d.param("name"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ApplicationInfo{
		Name:        name,
		Exposed:     boolField(fields, d.param("exposed")),
		CharmURL:    stringField(fields, d.param("charm-url")),
		Life:        stringField(fields, d.param("life")),
		Constraints: mapField(fields, d.param("constraints")),
		Config:      mapField(fields, d.param("config")),
	}, nil
}

func (d *dialect) parseAnnotationDelta(fields map[string]interface{}) (*AnnotationInfo, error) {
	tag, err := requireString(fields, d.param("tag"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	annotations, ok := fields[d.param("annotations")].(map[string]interface{})
	if !ok {
		return nil, malformedResponsef("malformed result %v", fields)
	}
	pairs := make(map[string]string, len(annotations))
	for k, v := range annotations {
		if s, ok := v.(string); ok {
			pairs[k] = s
		}
	}
	return newAnnotationInfo(tag, pairs), nil
}

func (d *dialect) parseMachineDelta(fields map[string]interface{}) (*MachineInfo, error) {
	id, err := requireString(fields, d.param("id"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	instanceId, err := requireString(fields, d.param("instance-id"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	status, statusInfo := d.deltaStatus(d, fields)
	return &MachineInfo{
		Id:         id,
		InstanceId: instanceId,
		Status:     status,
		StatusInfo: statusInfo,
		Jobs:       stringListField(fields, d.param("jobs")),
		// Pending machines may report a null address list.
		Address:   d.firstUsableAddress(listField(fields, d.param("addresses"))),
		HasVote:   boolField(fields, d.param("has-vote")),
		WantsVote: boolField(fields, d.param("wants-vote")),
	}, nil
}

func (d *dialect) parseActionDelta(fields map[string]interface{}) (*ActionInfo, error) {
	info := &ActionInfo{
		Results: mapField(fields, d.param("results")),
	}
	var err error
	if info.Id, err = requireString(fields, d.param("id")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.Name, err = requireString(fields, d.param("name")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.Receiver, err = requireString(fields, d.param("receiver")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.Status, err = requireString(fields, d.param("status")); err != nil {
		return nil, errors.Trace(err)
	}
	if info.Message, err = requireString(fields, d.param("message")); err != nil {
		return nil, errors.Trace(err)
	}
	return info, nil
}

// isUsableEndpoint reports whether the given address is usable from
// outside the controller machine: a non-local IPv4 address, or the
// hostname address the dummy provider publishes.
func (d *dialect) isUsableEndpoint(endpoint map[string]interface{}) bool {
	// Server versions disagree on the casing of these two fields, so
	// accept either spelling.
	scope := stringField(endpoint, "Scope")
	if scope == "" {
		scope = stringField(endpoint, "scope")
	}
	addrType := stringField(endpoint, "Type")
	if addrType == "" {
		addrType = stringField(endpoint, "type")
	}
	if scope != "local-machine" && addrType == "ipv4" {
		return true
	}
	network := stringField(endpoint, d.param("space-name"))
	return network == "dummy-provider-network" && addrType == "hostname"
}

// firstUsableAddress returns the value of the first usable address in
// the list, or the empty string.
func (d *dialect) firstUsableAddress(addresses []interface{}) string {
	for _, a := range addresses {
		address, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		if d.isUsableEndpoint(address) {
			return stringField(address, d.param("value"))
		}
	}
	return ""
}
