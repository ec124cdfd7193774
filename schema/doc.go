// Package schema parses declarative input schemas and validates capability
// arguments against them.
//
// # Declaring Schemas
//
// Tool schemas nest property declarations under "properties":
//
//	s, err := schema.New(map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	        "query":    map[string]any{"type": "string", "required": true},
//	        "bindings": map[string]any{"type": "array"},
//	    },
//	})
//
// Prompt argument lists are flat; every top-level key is a property:
//
//	s, err := schema.Flat(map[string]any{
//	    "error_message": map[string]any{"type": "string", "required": true},
//	})
//
// Schemas can also be derived from Go structs:
//
//	s := schema.Reflect[QueryArgs]()
//
// # Validation
//
// Validate returns the coerced arguments or ValidationErrors:
//
//   - string: must be a string
//   - number, integer: JSON numbers or numeric strings
//   - boolean: true/false, 1/0, "1"/"0", "true"/"false"
//   - array: any list, items checked when declared
//   - object: any JSON object, nested properties checked when declared
//   - anything else is checked as a string
//
// Optional properties accept null and absence without a type check.
// Required properties reject absence, null, empty strings and empty lists.
// Undeclared keys are dropped from the result.
package schema
