// Package api embeds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3.0 document for the subscription API.
//
//go:embed openapi.yaml
var OpenAPI []byte
