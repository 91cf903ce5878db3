package captcha

import "github.com/santhosh-tekuri/jsonschema/v5"

// schemaBase gives the payload schemas absolute ids, so validation errors
// never name a file under the working directory.
const schemaBase = "https://go-drift.dev/captcha/"

// payloadSchemas holds the expected shape of the data field per tag.
// Extra fields are allowed so newer widget scripts keep decoding.
var payloadSchemas = map[string]*jsonschema.Schema{
	TagComplete: jsonschema.MustCompileString(schemaBase + "complete.json", `{
		"type": "object",
		"required": ["response", "id"],
		"properties": {
			"response": {"type": "string"},
			"id": {"type": "string"}
		}
	}`),
	TagError: jsonschema.MustCompileString(schemaBase + "error.json", `{
		"type": "object",
		"required": ["error", "id"],
		"properties": {
			"error": {"$ref": "#/$defs/widgetError"},
			"id": {"type": "string"}
		},
		"$defs": {
			"widgetError": {
				"type": "object",
				"properties": {
					"code": {"type": "string"},
					"detail": {"type": "string"}
				}
			}
		}
	}`),
	TagExpire: jsonschema.MustCompileString(schemaBase + "expire.json", `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string"}
		}
	}`),
	TagStateChange: jsonschema.MustCompileString(schemaBase + "statechange.json", `{
		"type": "object",
		"required": ["state", "response", "id"],
		"properties": {
			"state": {"type": "string", "minLength": 1},
			"response": {"type": "string"},
			"id": {"type": "string"},
			"error": {
				"oneOf": [
					{"type": "null"},
					{
						"type": "object",
						"properties": {
							"code": {"type": "string"},
							"detail": {"type": "string"}
						}
					}
				]
			}
		}
	}`),
}
