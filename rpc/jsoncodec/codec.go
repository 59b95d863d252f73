// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package jsoncodec implements the API's JSON wire envelope: one
// JSON object per websocket message, correlated by request id.
package jsoncodec

import (
	"encoding/json"

	"github.com/juju/errors"

	"github.com/juju/jujuapi/rpc/params"
)

// outMsg is the client to server message envelope.
type outMsg struct {
	RequestId uint64
	Type      string
	Version   int    `json:",omitempty"`
	Id        string `json:",omitempty"`
	Request   string
	Params    map[string]interface{}
}

// Message holds a decoded server to client message. Exactly one of
// Body and Error is meaningful: Error nil means Body (possibly
// empty) is the result.
type Message struct {
	RequestId uint64
	Body      map[string]interface{}
	Error     *params.Error
}

// envelope keys that are never part of a response body.
var reservedKeys = []string{"RequestId", "Error", "ErrorCode", "Response"}

// EncodeRequest serializes a request envelope. Id and Version are
// omitted entirely from the wire when empty; the server interprets
// an absent Version as version 0. A nil params map is sent as an
// empty object, never as null.
func EncodeRequest(requestId uint64, entityType, request, id string, version int, p map[string]interface{}) ([]byte, error) {
	if p == nil {
		p = map[string]interface{}{}
	}
	data, err := json.Marshal(&outMsg{
		RequestId: requestId,
		Type:      entityType,
		Version:   version,
		Id:        id,
		Request:   request,
		Params:    p,
	})
	if err != nil {
		return nil, errors.Annotate(err, "cannot marshal request")
	}
	return data, nil
}

// DecodeMessage parses a server message. A message carrying an
// "Error" field decodes to a *params.Error classified by its
// "ErrorCode" (absent codes default to the empty string). Otherwise
// the body is the "Response" field if present, else whatever remains
// of the object once the envelope keys are removed. It is an error
// for the payload to be invalid JSON or to lack a request id.
func DecodeMessage(data []byte) (*Message, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Annotate(err, "cannot unmarshal message")
	}
	rawId, ok := fields["RequestId"]
	if !ok {
		return nil, errors.Errorf("message has no RequestId: %q", data)
	}
	reqId, ok := rawId.(float64)
	if !ok {
		return nil, errors.Errorf("message has non-numeric RequestId: %q", data)
	}
	msg := &Message{RequestId: uint64(reqId)}

	if rawErr, ok := fields["Error"]; ok {
		message, ok := rawErr.(string)
		if !ok {
			return nil, errors.Errorf("message has non-string Error: %q", data)
		}
		// ErrorCode is present only for failure modes that define
		// one; the server's omitempty elides it otherwise.
		code, _ := fields["ErrorCode"].(string)
		msg.Error = &params.Error{Message: message, Code: code}
		return msg, nil
	}

	if rawResp, ok := fields["Response"]; ok {
		body, ok := rawResp.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("message has non-object Response: %q", data)
		}
		msg.Body = body
		return msg, nil
	}
	for _, key := range reservedKeys {
		delete(fields, key)
	}
	msg.Body = fields
	return msg, nil
}
