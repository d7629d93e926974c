// Package asyncapi checks CloudEvent payloads against the message schemas
// of an AsyncAPI document.
package asyncapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
)

const schemaRef = "#/components/schemas/"

// ErrUnknownEventType is returned for events the document has no message for
var ErrUnknownEventType = errors.New("event type not in contract")

type document struct {
	Components struct {
		Messages map[string]message `yaml:"messages"`
		Schemas  map[string]any     `yaml:"schemas"`
	} `yaml:"components"`
}

// message is keyed by its name, which is the CloudEvent type
type message struct {
	Name    string `yaml:"name"`
	Payload struct {
		Ref string `yaml:"$ref"`
	} `yaml:"payload"`
}

// Catalog maps event types to compiled payload schemas
type Catalog struct {
	schemas map[string]*jsonschema.Schema
}

// Load compiles the payload schema of every component message in doc
func Load(doc []byte) (*Catalog, error) {
	var d document
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("parse asyncapi document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	c := &Catalog{schemas: make(map[string]*jsonschema.Schema, len(d.Components.Messages))}
	for key, msg := range d.Components.Messages {
		if msg.Name == "" {
			return nil, fmt.Errorf("message %s has no name", key)
		}
		name, ok := strings.CutPrefix(msg.Payload.Ref, schemaRef)
		if !ok {
			return nil, fmt.Errorf("message %s: payload %q is not a component schema", key, msg.Payload.Ref)
		}
		raw, ok := d.Components.Schemas[name]
		if !ok {
			return nil, fmt.Errorf("message %s: schema %s not found", key, name)
		}

		schema, err := compile(compiler, name, raw)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", key, err)
		}
		c.schemas[msg.Name] = schema
	}
	return c, nil
}

func compile(compiler *jsonschema.Compiler, name string, raw any) (*jsonschema.Schema, error) {
	doc, err := asJSON(raw)
	if err != nil {
		return nil, err
	}
	url := "asyncapi://components/schemas/" + name
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// asJSON converts a value decoded from YAML, or any Go value, into the
// representation the schema validator expects
func asJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// Validate checks the data of event against the schema of its type
func (c *Catalog) Validate(event *cloudevents.Event) error {
	schema, ok := c.schemas[event.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("%s: event has no data", event.Type)
	}

	data, err := asJSON(event.Data)
	if err != nil {
		return fmt.Errorf("%s: encode data: %w", event.Type, err)
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("%s: %w", event.Type, err)
	}
	return nil
}

// ValidateJSON decodes a structured-mode CloudEvent and validates it
func (c *Catalog) ValidateJSON(raw []byte) error {
	var event cloudevents.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("decode cloudevent: %w", err)
	}
	return c.Validate(&event)
}

// Has reports whether eventType is described by the contract
func (c *Catalog) Has(eventType string) bool {
	_, ok := c.schemas[eventType]
	return ok
}

// Types lists the described event types in order
func (c *Catalog) Types() []string {
	types := make([]string, 0, len(c.schemas))
	for t := range c.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
