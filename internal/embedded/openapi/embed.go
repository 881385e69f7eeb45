// Package openapi embeds the OpenAPI specification of the courtsync HTTP API.
package openapi

import (
	_ "embed"
	"sync"

	"github.com/goccy/go-yaml"
)

// SpecYAML contains the OpenAPI 3.0 specification in YAML format.
// Served at: GET /openapi.yaml
//
//go:embed openapi.yaml
var SpecYAML []byte

// SpecJSON returns the specification converted to JSON.
// Served at: GET /openapi.json
var SpecJSON = sync.OnceValues(func() ([]byte, error) {
	return yaml.YAMLToJSON(SpecYAML)
})
