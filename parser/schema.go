package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/awantoch/scriptflow/model"
)

// graphSchemaJSON describes the shape a generated graph must have. Missing
// collections are allowed; ids, sources and targets must be strings.
const graphSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "nodes": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "label": {"type": "string"}
        }
      }
    },
    "edges": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "condition": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var graphSchema = jsonschema.MustCompileString("rawgraph.schema.json", graphSchemaJSON)

// DecodeValidated checks data against the graph schema and decodes it.
func DecodeValidated(data []byte) (*model.RawGraph, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("graph is not valid JSON: %w", err)
	}
	if err := graphSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("graph does not match schema: %w", err)
	}
	var g model.RawGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}
