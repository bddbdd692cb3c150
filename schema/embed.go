package schema

import _ "embed"

// VigilV1Schema contains the JSON schema for vigil configuration files.
//
//go:embed vigil.v1.json
var VigilV1Schema []byte
