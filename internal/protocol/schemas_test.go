package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	tickSchema := compile("tick.schema.json")
	traceSchema := compile("trace.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "observer_name":"overlay",
	  "include_decisions":true
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"OBS1",
	  "world_params":{
	    "world_id":"resort_1",
	    "tick_rate_hz":5,
	    "seed":1337,
	    "network_snap_radius":2,
	    "max_skiers":120
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var tick any
	_ = json.Unmarshal([]byte(`{
	  "type":"TICK",
	  "protocol_version":"1.0",
	  "tick":42,
	  "graph_generation":3,
	  "tuning_version":1,
	  "digest":"deadbeef",
	  "skiers":[
	    {"id":"S1","name":"skier_1","skill":"EXPERT","state":"SKIING",
	     "pos":[1.5,40,30],"segment_id":"TB","progress":0.25,
	     "goal_state":"EN_ROUTE","goal_id":"TB_S"}
	  ],
	  "decisions":[
	    {"agent_id":"S1","point_id":"L1_T","outcome":"SELECTED",
	     "chosen_id":"TB","chosen_kind":"TRAIL",
	     "candidates":[
	       {"structure_id":"TB","kind":"TRAIL","difficulty":"BLACK",
	        "direct":0.7,"downstream":0.525,"score":0.68},
	       {"structure_id":"TG","kind":"TRAIL","difficulty":"GREEN",
	        "direct":0.1,"dead_end":true,"score":0.02}
	     ]}
	  ]
	}`), &tick)
	validate(tickSchema, tick)

	var trace any
	_ = json.Unmarshal([]byte(`{
	  "type":"TRACE",
	  "protocol_version":"1.0",
	  "agent_id":"S1",
	  "tick":42,
	  "decision":{"agent_id":"S1","point_id":"L1_T","outcome":"NO_VIABLE_ROUTE"}
	}`), &trace)
	validate(traceSchema, trace)
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "tick.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var bad any
	_ = json.Unmarshal([]byte(`{
	  "type":"TICK",
	  "protocol_version":"1.0",
	  "tick":-1,
	  "graph_generation":0,
	  "tuning_version":0,
	  "digest":"x",
	  "skiers":[]
	}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("negative tick accepted")
	}
}
