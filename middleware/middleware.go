package middleware

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// DefaultStack returns the production middleware stack: panic recovery,
// request IDs and logging.
func DefaultStack(logger Logger) []Middleware {
	return []Middleware{
		Recover(WithRecoverLogger(logger)),
		RequestID(),
		Logging(logger),
	}
}

// DefaultStackWithTimeout returns the default stack with a request deadline.
func DefaultStackWithTimeout(logger Logger, timeout time.Duration) []Middleware {
	return []Middleware{
		Recover(WithRecoverLogger(logger)),
		RequestID(),
		Timeout(timeout),
		Logging(logger),
	}
}

// Capability returns the capability a request targets: the tool or prompt
// name, or the resource URI. It returns "" for other methods.
func Capability(req *protocol.Request) string {
	switch req.Method {
	case protocol.MethodToolsCall, protocol.MethodPromptsGet, protocol.MethodResourcesRead:
	default:
		return ""
	}
	var params struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
		return ""
	}
	if params.URI != "" {
		return params.URI
	}
	return params.Name
}
