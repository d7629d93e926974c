// Package api holds the HTTP and event contracts of the pickup service.
package api

import _ "embed"

// OpenAPI is the HTTP contract
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI is the event contract
//
//go:embed asyncapi.yaml
var AsyncAPI []byte
