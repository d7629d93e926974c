// Package jsonschema validates raw delivery-option function input before it is decoded.
package jsonschema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	js "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed function_input.schema.json
var functionInputSchema []byte

// FunctionInputSchemaURL identifies the embedded FunctionInput schema
const FunctionInputSchemaURL = "https://diylabel.app/schemas/function-input.json"

// ErrMalformedJSON is returned when the payload is not JSON at all
var ErrMalformedJSON = errors.New("malformed JSON")

// ValidationError lists schema violations keyed by JSON pointer into the input
type ValidationError struct {
	Fields map[string]string
	cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for location, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", location, msg))
	}
	return "function input does not match schema: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// InputValidator validates FunctionInput payloads
type InputValidator struct {
	schema *js.Schema
}

// NewInputValidator compiles the embedded FunctionInput schema
func NewInputValidator() (*InputValidator, error) {
	doc, err := js.UnmarshalJSON(bytes.NewReader(functionInputSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse function input schema: %w", err)
	}

	compiler := js.NewCompiler()
	if err := compiler.AddResource(FunctionInputSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add function input schema: %w", err)
	}

	schema, err := compiler.Compile(FunctionInputSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile function input schema: %w", err)
	}

	return &InputValidator{schema: schema}, nil
}

// Validate checks raw against the FunctionInput schema
func (v *InputValidator) Validate(raw []byte) error {
	inst, err := js.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if err := v.schema.Validate(inst); err != nil {
		var verr *js.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		return &ValidationError{Fields: violations(verr), cause: err}
	}
	return nil
}

// Schema returns the embedded schema document
func Schema() []byte {
	out := make([]byte, len(functionInputSchema))
	copy(out, functionInputSchema)
	return out
}

func violations(verr *js.ValidationError) map[string]string {
	fields := make(map[string]string)
	output := verr.BasicOutput()
	if output == nil {
		fields["/"] = verr.Error()
		return fields
	}

	for _, unit := range output.Errors {
		if unit.Error == nil {
			continue
		}
		location := unit.InstanceLocation
		if location == "" {
			location = "/"
		}
		fields[location] = fmt.Sprint(unit.Error)
	}
	if len(fields) == 0 {
		fields["/"] = verr.Error()
	}
	return fields
}
