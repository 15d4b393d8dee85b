package api

import _ "embed"

// OpenAPISpec — описание HTTP API бота, отдаётся по /swagger/openapi.json.
//
//go:embed openapi.json
var OpenAPISpec []byte
