package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// specSchema accepts either form of the signals section:
//
//	signals:                      signals:
//	  trend_pullback:               - name: trend_pullback
//	    primary: "..."                primary: "..."
//	    confirm: "..."                confirm: "..."
const specSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["signals"],
  "properties": {
    "signals": {
      "oneOf": [
        {"type": "object", "minProperties": 1, "additionalProperties": {"$ref": "#/$defs/block"}},
        {"type": "array", "minItems": 1, "items": {"allOf": [{"$ref": "#/$defs/block"}, {"type": "object", "required": ["name"]}]}}
      ]
    }
  },
  "$defs": {
    "block": {
      "type": ["object", "null"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "primary": {"type": ["string", "null"]},
        "confirm": {"type": ["string", "null"]}
      },
      "additionalProperties": false
    }
  }
}`

var loadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("signals.json", strings.NewReader(specSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("signals.json")
})

// LoadSpec reads the rule specification file.
func LoadSpec(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signal spec failed: %w", err)
	}
	rules, err := ParseSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseSpec decodes and validates a rule specification. Rules keep the order
// in which they appear in the document.
func ParseSpec(raw []byte) ([]Rule, error) {
	if err := validateSpec(raw); err != nil {
		return nil, err
	}
	var doc struct {
		Signals yaml.Node `yaml:"signals"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse signal spec failed: %w", err)
	}
	node := &doc.Signals
	switch node.Kind {
	case yaml.MappingNode:
		rules := make([]Rule, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var r Rule
			if err := node.Content[i+1].Decode(&r); err != nil {
				return nil, fmt.Errorf("signal %s: %w", node.Content[i].Value, err)
			}
			if r.Name == "" {
				r.Name = node.Content[i].Value
			}
			rules = append(rules, r)
		}
		return rules, nil
	case yaml.SequenceNode:
		var rules []Rule
		if err := node.Decode(&rules); err != nil {
			return nil, fmt.Errorf("parse signal list failed: %w", err)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("signals must be a mapping or a list")
	}
}

func validateSpec(raw []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile signal schema failed: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("parse signal spec failed: %w", err)
	}
	// Round-trip through JSON so the validator sees float64 and map[string]any.
	buf, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("signal spec is not JSON compatible: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return err
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("invalid signal spec: %w", err)
	}
	return nil
}
