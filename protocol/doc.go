// Package protocol defines the JSON-RPC 2.0 message types and error codes
// used between MCP clients and the toolbox.
//
// # Request and Response Types
//
//	type Request struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Method  string          `json:"method"`
//	    Params  json.RawMessage `json:"params,omitempty"`
//	}
//
// Typed params for the capability methods are provided as CallToolParams,
// ReadResourceParams and GetPromptParams; Request.DecodeParams fills them and
// reports malformed params as an InvalidParams error.
//
// # Error Codes
//
// Standard JSON-RPC 2.0 codes are complemented by MCP codes:
//
//	CodeNotFound           = -32001  // unknown tool, resource or prompt
//	CodeUnauthorized       = -32002  // authentication failed
//	CodeRateLimited        = -32003  // rate limit exceeded
//	CodeCapabilityDisabled = -32004  // capability switched off by config
//	CodeValidationFailed   = -32005  // arguments did not match the schema
package protocol
