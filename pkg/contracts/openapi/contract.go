// Package openapi checks HTTP exchanges against the pickup API document.
package openapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// Contract is a loaded and validated OpenAPI document
type Contract struct {
	doc    *openapi3.T
	router routers.Router
}

// Load parses doc and rejects it when it is not a valid OpenAPI 3 document
func Load(doc []byte) (*Contract, error) {
	parsed, err := openapi3.NewLoader().LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := parsed.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	router, err := gorillamux.NewRouter(parsed)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &Contract{doc: parsed, router: router}, nil
}

func (c *Contract) input(req *http.Request) (*openapi3filter.RequestValidationInput, error) {
	route, params, err := c.router.FindRoute(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s is not in the contract: %w", req.Method, req.URL.Path, err)
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: true},
	}, nil
}

// Request checks parameters and body of req. The body can be read again afterwards.
func (c *Contract) Request(req *http.Request) error {
	in, err := c.input(req)
	if err != nil {
		return err
	}
	if err := openapi3filter.ValidateRequest(req.Context(), in); err != nil {
		return fmt.Errorf("request breaks contract: %w", err)
	}
	return nil
}

// Response checks a response that was produced for req
func (c *Contract) Response(req *http.Request, status int, header http.Header, body []byte) error {
	in, err := c.input(req)
	if err != nil {
		return err
	}
	err = openapi3filter.ValidateResponse(req.Context(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: in,
		Status:                 status,
		Header:                 header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options:                &openapi3filter.Options{MultiError: true, IncludeResponseStatus: true},
	})
	if err != nil {
		return fmt.Errorf("response %d breaks contract: %w", status, err)
	}
	return nil
}

// OperationID names the operation req is routed to
func (c *Contract) OperationID(req *http.Request) (string, error) {
	in, err := c.input(req)
	if err != nil {
		return "", err
	}
	return in.Route.Operation.OperationID, nil
}

// Paths lists the documented path templates in sorted order
func (c *Contract) Paths() []string {
	if c.doc.Paths == nil {
		return nil
	}
	var paths []string
	for path := range c.doc.Paths.Map() {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}
