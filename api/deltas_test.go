// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api_test

import (
	"context"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/jujuapi/api"
	"github.com/juju/jujuapi/rpc/params"
)

type deltasSuite struct {
	testing.IsolationSuite

	caller *fakeCaller
}

var _ = gc.Suite(&deltasSuite{})

func (s *deltasSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.caller = newFakeCaller()
}

func (s *deltasSuite) next(c *gc.C, client api.Client) []api.Delta {
	deltas, err := client.AllWatcherNext(context.Background(), "watch-0")
	c.Assert(err, jc.ErrorIsNil)
	return deltas
}

func (s *deltasSuite) TestJuju2UnitDelta(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"unit", "change", map[string]interface{}{
				"name":        "mysql/0",
				"application": "mysql",
				"series":      "xenial",
				"machine-id":  "1",
				"agent-status": map[string]interface{}{
					"current": "idle",
					"message": "all good",
				},
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	c.Assert(deltas, gc.HasLen, 1)
	c.Check(deltas[0].Kind, gc.Equals, "unit")
	c.Check(deltas[0].Verb, gc.Equals, "change")
	c.Check(deltas[0].Info, jc.DeepEquals, &api.UnitInfo{
		Name:        "mysql/0",
		Application: "mysql",
		Series:      "xenial",
		MachineId:   "1",
		Status:      "idle",
		StatusInfo:  "all good",
	})
}

func (s *deltasSuite) TestJuju1ServiceAliasAndFlatStatus(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"Deltas": []interface{}{
			[]interface{}{"service", "change", map[string]interface{}{
				"Name":     "mysql",
				"Exposed":  true,
				"CharmURL": "cs:trusty/mysql-1",
				"Life":     "alive",
			}},
			[]interface{}{"unit", "change", map[string]interface{}{
				"Name":       "mysql/0",
				"Service":    "mysql",
				"Status":     "started",
				"StatusInfo": "hooray",
			}},
		},
	})
	client := api.NewJuju1Client(s.caller)
	deltas := s.next(c, client)

	c.Assert(deltas, gc.HasLen, 2)
	c.Check(deltas[0].Kind, gc.Equals, "application")
	c.Check(deltas[0].Info, jc.DeepEquals, &api.ApplicationInfo{
		Name:     "mysql",
		Exposed:  true,
		CharmURL: "cs:trusty/mysql-1",
		Life:     "alive",
	})
	unit := deltas[1].Info.(*api.UnitInfo)
	c.Check(unit.Status, gc.Equals, "started")
	c.Check(unit.StatusInfo, gc.Equals, "hooray")
}

func (s *deltasSuite) TestMachineDeltaAddressFilter(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"machine", "change", map[string]interface{}{
				"id":          "0",
				"instance-id": "inst-0",
				"jobs":        []interface{}{"JobManageModel"},
				"addresses": []interface{}{
					map[string]interface{}{
						"value": "127.0.0.1", "scope": "local-machine", "type": "ipv4",
					},
					map[string]interface{}{
						"value": "10.0.3.1", "scope": "public", "type": "ipv4",
					},
				},
				"agent-status": map[string]interface{}{"current": "started"},
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	c.Assert(deltas, gc.HasLen, 1)
	machine := deltas[0].Info.(*api.MachineInfo)
	c.Check(machine.Id, gc.Equals, "0")
	c.Check(machine.InstanceId, gc.Equals, "inst-0")
	c.Check(machine.Address, gc.Equals, "10.0.3.1")
	c.Check(machine.IsStateServer(), jc.IsTrue)
}

func (s *deltasSuite) TestMachineDeltaNullAddresses(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"machine", "change", map[string]interface{}{
				"id":          "0",
				"instance-id": "pending",
				"addresses":   nil,
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	machine := deltas[0].Info.(*api.MachineInfo)
	c.Check(machine.Address, gc.Equals, "")
	c.Check(machine.IsStateServer(), jc.IsFalse)
}

func (s *deltasSuite) TestAnnotationDelta(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"annotation", "change", map[string]interface{}{
				"tag": "unit-mysql-0",
				"annotations": map[string]interface{}{
					"owner": "ops",
				},
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	info := deltas[0].Info.(*api.AnnotationInfo)
	c.Check(info.Tag, gc.Equals, "unit-mysql-0")
	c.Check(info.EntityKind, gc.Equals, "unit")
	c.Check(info.EntityId, gc.Equals, "mysql/0")
	c.Check(info.Annotations, jc.DeepEquals, map[string]string{"owner": "ops"})
}

func (s *deltasSuite) TestActionDelta(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"action", "change", map[string]interface{}{
				"id":       "some-id",
				"name":     "backup",
				"receiver": "mysql/0",
				"status":   "completed",
				"message":  "done",
				"results": map[string]interface{}{
					"outcome": "success",
				},
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	c.Check(deltas[0].Info, jc.DeepEquals, &api.ActionInfo{
		Id:       "some-id",
		Name:     "backup",
		Receiver: "mysql/0",
		Status:   "completed",
		Message:  "done",
		Results:  map[string]interface{}{"outcome": "success"},
	})
}

func (s *deltasSuite) TestUnknownKindDropped(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"widget", "change", map[string]interface{}{
				"name": "shiny",
			}},
			[]interface{}{"annotation", "change", map[string]interface{}{
				"tag":         "machine-0",
				"annotations": map[string]interface{}{},
			}},
		},
	})
	client := api.NewJuju2Client(s.caller)
	deltas := s.next(c, client)

	c.Assert(deltas, gc.HasLen, 1)
	c.Check(deltas[0].Kind, gc.Equals, "annotation")
}

func (s *deltasSuite) TestMalformedDelta(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"deltas": []interface{}{
			[]interface{}{"unit", "change"},
		},
	})
	client := api.NewJuju2Client(s.caller)
	_, err := client.AllWatcherNext(context.Background(), "watch-0")
	c.Assert(err, gc.ErrorMatches, "malformed delta .*")
	c.Check(api.IsMalformedResponse(err), jc.IsTrue)
}

func (s *deltasSuite) TestStoppedWatcher(c *gc.C) {
	s.caller.fail(&params.Error{Message: "watcher was stopped"})
	client := api.NewJuju2Client(s.caller)
	_, err := client.AllWatcherNext(context.Background(), "watch-0")
	c.Assert(api.IsAllWatcherStopped(err), jc.IsTrue)
}

func (s *deltasSuite) TestWatchAll(c *gc.C) {
	s.caller.respond(map[string]interface{}{
		"watcher-id": "watch-7",
	})
	client := api.NewJuju2Client(s.caller)
	w, err := api.NewAllWatcher(context.Background(), client)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(w.Id(), gc.Equals, "watch-7")
	c.Check(s.caller.lastCall().req.Action, gc.Equals, "WatchAll")
}
