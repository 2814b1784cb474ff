package task

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// submissionSchema is the wire contract for POST /task/submit. Extra keys
// are tolerated; the boundary only promises to read these two.
const submissionSchema = `{
	"type": "object",
	"properties": {
		"taskType": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1}
	},
	"required": ["taskType", "userId"]
}`

var compiledSubmission = mustCompile("task-submission.json", submissionSchema)

func mustCompile(name, definition string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(definition)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// ValidateSubmission checks a raw request body against the submission schema.
func ValidateSubmission(payload []byte) error {
	var payloadJSON interface{}
	if err := json.Unmarshal(payload, &payloadJSON); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := compiledSubmission.Validate(payloadJSON); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
