package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema derives the parameters schema of a tool from the struct T.
// Fields without omitempty are required.
func Schema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	return schema
}

// Decode converts tool call arguments into T.
func Decode[T any](args map[string]any) (T, error) {
	var v T
	b, err := json.Marshal(args)
	if err != nil {
		return v, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode arguments: %w", err)
	}
	return v, nil
}
