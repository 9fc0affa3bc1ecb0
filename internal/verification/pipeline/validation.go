package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"medverify/internal/models"
)

// requestSchema is the shape contract for a signup verification request.
// Format semantics (check digit correctness, registry existence) are owned by
// the stages; this layer rejects structurally unusable input before any stage
// runs.
const requestSchema = `{
	"type": "object",
	"required": ["nationalId", "checkDigit", "fullName"],
	"properties": {
		"nationalId": {
			"type": "string",
			"pattern": "^[0-9]{7,9}$",
			"description": "National identification number without check digit"
		},
		"checkDigit": {
			"type": "string",
			"pattern": "^[0-9Kk]$",
			"description": "Modulo-11 check digit"
		},
		"fullName": {
			"type": "string",
			"minLength": 3,
			"maxLength": 200,
			"description": "Full name as claimed at signup"
		},
		"birthDate": {
			"type": "string",
			"maxLength": 30
		},
		"claimedSpecialty": {
			"type": "string",
			"maxLength": 120
		}
	},
	"additionalProperties": false
}`

var compiledRequestSchema = gojsonschema.NewStringLoader(requestSchema)

// validateRequest returns one message per schema violation, or nil.
func validateRequest(req *models.VerificationRequest) []string {
	doc, err := json.Marshal(req)
	if err != nil {
		return []string{fmt.Sprintf("request not serializable: %v", err)}
	}

	result, err := gojsonschema.Validate(compiledRequestSchema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []string{fmt.Sprintf("request schema validation failed: %v", err)}
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations
}
