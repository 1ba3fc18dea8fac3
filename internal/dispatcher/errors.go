package dispatcher

import "encoding/json"

// Error codes for the JSON error envelope. Reserved as a contiguous
// range so new codes can be appended without reshuffling.
const (
	ErrUnknown               = 490
	ErrUsePost                = 491
	ErrMissingRequest         = 492
	ErrInvalidJSON            = 493
	ErrInvalidJSONObject      = 494
	ErrMissingMandatoryElem   = 495
	ErrInvalidRequestPath     = 496
	ErrUnknownRequest         = 497
	ErrSessionNotFound        = 498
	ErrHandleNotFound         = 499
	ErrPluginNotFound         = 500
	ErrPluginAttach           = 501
	ErrPluginDetach           = 502
	ErrPluginMessage          = 503
	ErrJsepUnknownType        = 504
	ErrJsepInvalidSDP         = 505
)

var reasons = map[int]string{
	ErrUnknown:             "Unknown error",
	ErrUsePost:             "Use POST for this request",
	ErrMissingRequest:      "Missing request",
	ErrInvalidJSON:         "Invalid JSON",
	ErrInvalidJSONObject:   "Invalid JSON object",
	ErrMissingMandatoryElem: "Missing mandatory element",
	ErrInvalidRequestPath:  "Invalid request path",
	ErrUnknownRequest:      "Unknown request",
	ErrSessionNotFound:     "Session not found",
	ErrHandleNotFound:      "Handle not found",
	ErrPluginNotFound:      "Plugin not found",
	ErrPluginAttach:        "Error attaching plugin",
	ErrPluginDetach:        "Error detaching plugin",
	ErrPluginMessage:       "Error handling plugin message",
	ErrJsepUnknownType:     "Unknown JSEP type",
	ErrJsepInvalidSDP:      "Invalid SDP",
}

// reasonFor returns the human-readable string for code, falling back
// to the generic UNKNOWN reason for an unrecognized code.
func reasonFor(code int) string {
	if r, ok := reasons[code]; ok {
		return r
	}
	return reasons[ErrUnknown]
}

// jsonErrorPosition converts a JSON decode error's byte offset into a
// 1-indexed line/column pair by scanning raw up to that offset.
// Reports ok=false for error types that carry no offset.
func jsonErrorPosition(raw []byte, err error) (line, col int, ok bool) {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return 0, 0, false
	}

	line = 1
	lastNewline := -1
	for i := int64(0); i < offset && i < int64(len(raw)); i++ {
		if raw[i] == '\n' {
			line++
			lastNewline = int(i)
		}
	}
	col = int(offset) - lastNewline
	return line, col, true
}
